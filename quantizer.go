package main

import "fmt"

const maxRawValue = 127

type quantizedTable struct {
	mnemonic string
	values   []int
}

// quantizedControl holds one table per mode the control applies to. A mode
// without a table means the control does nothing in that mode.
type quantizedControl struct {
	name   string
	tables map[operatingMode]quantizedTable
}

type indexSlots interface {
	swapIndex(id controlID, mode operatingMode, idx int) bool
}

type quantizer struct {
	controls map[controlID]quantizedControl
}

func seq(from, to, step int) (r []int) {
	for v := from; v <= to; v += step {
		r = append(r, v)
	}
	return
}

var (
	filterWidthCW  = []int{50, 80, 100, 150, 200, 250, 300, 400, 500, 600, 1000, 1500, 2000, 2500}
	filterWidthFSK = []int{250, 500, 1000, 1500}
	slopeLowSSB    = seq(0, 11, 1)
	slopeHighSSB   = seq(0, 13, 1)
	ifShiftCW      = seq(300, 1000, 50)
)

func newDefaultQuantizer() *quantizer {
	ssb := func(mnemonic string, values []int) map[operatingMode]quantizedTable {
		t := quantizedTable{mnemonic: mnemonic, values: values}
		return map[operatingMode]quantizedTable{modeUSB: t, modeLSB: t}
	}
	return &quantizer{controls: map[controlID]quantizedControl{
		ctlFilterWidth: {
			name: "filter width",
			tables: map[operatingMode]quantizedTable{
				modeCW:  {mnemonic: "FW", values: filterWidthCW},
				modeFSK: {mnemonic: "FW", values: filterWidthFSK},
			},
		},
		ctlSlopeLow:  {name: "slope tune low", tables: ssb("SL", slopeLowSSB)},
		ctlSlopeHigh: {name: "slope tune high", tables: ssb("SH", slopeHighSSB)},
		ctlIFShift: {
			name: "if shift",
			tables: map[operatingMode]quantizedTable{
				modeCW: {mnemonic: "IS", values: ifShiftCW},
			},
		},
	}}
}

func (q *quantizer) controlName(id controlID) string {
	if c, ok := q.controls[id]; ok {
		return c.name
	}
	return fmt.Sprint("control ", int(id))
}

func (q *quantizer) debouncedControls() (ids []controlID) {
	for id := range q.controls {
		ids = append(ids, id)
	}
	return
}

func clampRaw(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > maxRawValue {
		return maxRawValue
	}
	return raw
}

// tableIndex spreads 0..127 over size entries; 127 always lands on the last.
func tableIndex(raw, size int) int {
	if size <= 1 {
		return 0
	}
	return clampRaw(raw) * (size - 1) / maxRawValue
}

// lookup resolves the command a raw reading selects, without debouncing.
func (q *quantizer) lookup(id controlID, raw int, mode operatingMode) (cmd catCommand, idx int, ok bool) {
	c, ok := q.controls[id]
	if !ok {
		return catCommand{}, 0, false
	}
	t, ok := c.tables[mode]
	if !ok || len(t.values) == 0 {
		return catCommand{}, 0, false
	}
	idx = tableIndex(raw, len(t.values))
	return catCmd(t.mnemonic, t.values[idx]), idx, true
}

// quantize returns a command only when the reading crosses into a different
// table entry than the last one emitted for this control.
func (q *quantizer) quantize(id controlID, raw int, mode operatingMode, slots indexSlots) (cmd catCommand, idx int, ok bool) {
	cmd, idx, ok = q.lookup(id, raw, mode)
	if !ok {
		return
	}
	if !slots.swapIndex(id, mode, idx) {
		return catCommand{}, idx, false
	}
	return cmd, idx, true
}

// linearMapping scales a raw reading onto [low, high]. It is not debounced.
type linearMapping struct {
	mnemonic string
	low      int
	high     int
}

func (l linearMapping) value(raw int) int {
	return l.low + (l.high-l.low)*clampRaw(raw)/maxRawValue
}

func (l linearMapping) apply(raw int) catCommand {
	return catCmd(l.mnemonic, l.value(raw))
}
