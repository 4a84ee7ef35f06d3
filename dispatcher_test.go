package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(mode operatingMode) (*dispatcher, *recordingSink, *recordingLEDs) {
	q := newDefaultQuantizer()
	st := newRadioState(mode, vfoA, q.debouncedControls())
	sink := &recordingSink{}
	leds := &recordingLEDs{}
	return newDispatcher(st, q, sink, leds, 5), sink, leds
}

func press(code byte) controlEvent {
	return controlEvent{class: buttonBank, code: code, value: 127}
}

func release(code byte) controlEvent {
	return controlEvent{class: buttonBank, code: code, value: 0}
}

func turn(id controlID, value byte) controlEvent {
	return controlEvent{class: continuousBank, code: byte(id), value: value}
}

func mustDispatch(t *testing.T, d *dispatcher, evs ...controlEvent) {
	t.Helper()
	for _, ev := range evs {
		_, err := d.dispatch(ev)
		require.NoError(t, err)
	}
}

func TestDispatchRITToggle(t *testing.T) {
	d, sink, leds := newTestDispatcher(modeUSB)

	mustDispatch(t, d, press(btnSyncB), release(btnSyncB))
	assert.True(t, d.state.snapshot().ritOn)
	assert.True(t, leds.lit()[btnSyncB])

	mustDispatch(t, d, press(btnSyncB), release(btnSyncB))
	assert.False(t, d.state.snapshot().ritOn)
	assert.False(t, leds.lit()[btnSyncB])

	assert.Equal(t, []string{"RT1;", "RT0;"}, sink.encoded())
}

func TestDispatchXITAndPowerToggle(t *testing.T) {
	d, sink, _ := newTestDispatcher(modeUSB)

	mustDispatch(t, d, press(btnCueB), press(btnRec))
	assert.Equal(t, []string{"XT1;", "PS1;"}, sink.encoded())
	st := d.state.snapshot()
	assert.True(t, st.xitOn)
	assert.True(t, st.powerOn)
	assert.False(t, st.ritOn)
}

func TestDispatchModeSelect(t *testing.T) {
	d, sink, leds := newTestDispatcher(modeUSB)

	mustDispatch(t, d, press(btnPad1B), release(btnPad1B))
	assert.Equal(t, modeCW, d.state.getMode())
	assert.Equal(t, []string{"MD3;"}, sink.encoded())
	assert.Equal(t, map[byte]bool{btnPad1B: true}, leds.lit())

	mustDispatch(t, d, press(btnPad4B))
	assert.Equal(t, modeLSB, d.state.getMode())
	assert.Equal(t, map[byte]bool{btnPad4B: true}, leds.lit(), "mode indicators are exclusive")
	assert.Equal(t, "MD1;", sink.encoded()[1])

	mustDispatch(t, d, press(btnPad2B))
	assert.Equal(t, "MD6;", sink.encoded()[2])
}

func TestDispatchVFOSelect(t *testing.T) {
	d, sink, leds := newTestDispatcher(modeUSB)

	mustDispatch(t, d, press(btnCueA))
	assert.Equal(t, vfoB, d.state.snapshot().vfo)
	assert.Equal(t, map[byte]bool{btnCueA: true}, leds.lit())

	mustDispatch(t, d, press(btnPad3A))
	st := d.state.snapshot()
	assert.Equal(t, vfoA, st.vfo)
	assert.True(t, st.splitOn)
	assert.Equal(t, map[byte]bool{btnPad3A: true}, leds.lit())

	mustDispatch(t, d, press(btnPad4A))
	assert.Equal(t, map[byte]bool{btnPad4A: true}, leds.lit())

	mustDispatch(t, d, press(btnSyncA))
	assert.False(t, d.state.snapshot().splitOn)
	assert.Equal(t, map[byte]bool{btnSyncA: true}, leds.lit())

	assert.Equal(t, []string{"FR1;", "FR0;", "FT1;", "FR1;", "FT0;", "FR0;"}, sink.encoded())
}

func TestDispatchMomentary(t *testing.T) {
	d, sink, leds := newTestDispatcher(modeUSB)

	mustDispatch(t, d, press(btnPad1A))
	assert.True(t, leds.lit()[btnPad1A])
	mustDispatch(t, d, release(btnPad1A))
	assert.False(t, leds.lit()[btnPad1A])

	mustDispatch(t, d, press(btnPlayA), release(btnPlayA), press(btnPlayB), release(btnPlayB))
	assert.Equal(t, []string{"TS1;", "TS0;", "VV;", "RC;"}, sink.encoded())
}

func TestDispatchCWTuneOnlyInCW(t *testing.T) {
	d, sink, leds := newTestDispatcher(modeUSB)

	mustDispatch(t, d, press(btnPad2A))
	assert.Equal(t, []string{"CA0;"}, sink.encoded())
	assert.False(t, leds.lit()[btnPad2A])

	mustDispatch(t, d, press(btnPad1B), press(btnPad2A))
	assert.Equal(t, []string{"CA0;", "MD3;", "CA1;"}, sink.encoded())
	assert.True(t, leds.lit()[btnPad2A])

	mustDispatch(t, d, release(btnPad2A))
	assert.Equal(t, "CA0;", sink.encoded()[3])
}

func TestDispatchJogs(t *testing.T) {
	d, sink, _ := newTestDispatcher(modeUSB)

	mustDispatch(t, d, turn(ctlJogA, 1), turn(ctlJogA, 127), turn(ctlJogB, 2), turn(ctlJogB, 126))
	assert.Equal(t, []string{"UP05;", "DN05;", "RU;", "RD;"}, sink.encoded())
}

func TestDispatchLinearIsNotDebounced(t *testing.T) {
	d, sink, _ := newTestDispatcher(modeUSB)

	mustDispatch(t, d, turn(ctlTXPower, 127), turn(ctlTXPower, 127), turn(ctlGainSlider, 64))
	assert.Equal(t, []string{"PC100;", "PC100;", "AG0128;"}, sink.encoded())
}

func TestDispatchQuantized(t *testing.T) {
	d, sink, _ := newTestDispatcher(modeCW)

	mustDispatch(t, d,
		turn(ctlFilterWidth, 127),
		turn(ctlFilterWidth, 127),
		turn(ctlSlopeHigh, 127),
		turn(ctlIFShift, 127),
	)
	assert.Equal(t, []string{"FW2500;", "IS 1000;"}, sink.encoded())

	mustDispatch(t, d, press(btnPad3B), turn(ctlFilterWidth, 127), turn(ctlSlopeHigh, 127))
	assert.Equal(t, []string{"FW2500;", "IS 1000;", "MD2;", "SH13;"}, sink.encoded())
}

func TestDispatchIgnoresUnmapped(t *testing.T) {
	d, sink, leds := newTestDispatcher(modeUSB)

	for _, ev := range []controlEvent{
		press(99),
		turn(ctlReserved, 64),
		{class: deviceClass(0xe0), code: 1, value: 1},
		release(btnRec),
		release(btnPad1B),
	} {
		fx, err := d.dispatch(ev)
		require.NoError(t, err)
		assert.Empty(t, fx.commands, "%v", ev)
	}
	assert.Empty(t, sink.encoded())
	assert.Empty(t, leds.writes)
}

func TestDispatchTransportFailure(t *testing.T) {
	d, sink, _ := newTestDispatcher(modeUSB)
	sink.err = errWriteFailed

	_, err := d.dispatch(press(btnPad1B))
	assert.True(t, errors.Is(err, errWriteFailed))
}

func TestControlMapCommandsEncode(t *testing.T) {
	for key := range defaultControlMap() {
		for _, mode := range []operatingMode{modeCW, modeUSB, modeLSB, modeFSK} {
			for _, v := range []byte{0, 1, 64, 127} {
				d, _, _ := newTestDispatcher(mode)
				var fx effects
				d.table[key].plan(d, controlEvent{class: key.class, code: key.code, value: v}, &fx)
				for _, c := range fx.commands {
					_, err := c.encode()
					assert.NoError(t, err, "%v/%d in %v", key.class, key.code, mode)
				}
			}
		}
	}
}

func TestOperatorHelpers(t *testing.T) {
	d, sink, leds := newTestDispatcher(modeUSB)

	require.NoError(t, d.powerOn())
	require.NoError(t, d.selectMode(modeFSK))
	require.NoError(t, d.selectVFO(vfoB))

	assert.Equal(t, []string{"PS1;", "MD6;", "FR1;"}, sink.encoded())
	assert.Equal(t, map[byte]bool{btnRec: true, btnPad2B: true, btnCueA: true}, leds.lit())
	assert.True(t, d.state.snapshot().powerOn)
}

func TestControlMapDescriptions(t *testing.T) {
	d, _, _ := newTestDispatcher(modeUSB)
	for key, a := range d.table {
		assert.NotEmpty(t, a.describe(d), "%v/%d", key.class, key.code)
	}

	pot := func(id controlID) controlKey { return controlKey{class: continuousBank, code: byte(id)} }
	btn := func(code byte) controlKey { return controlKey{class: buttonBank, code: code} }
	assert.Equal(t, "filter width", d.table[pot(ctlFilterWidth)].describe(d))
	assert.Equal(t, "if shift", d.table[pot(ctlIFShift)].describe(d))
	assert.Equal(t, "af gain", d.table[pot(ctlGainSlider)].describe(d))
	assert.Equal(t, "vfo jog", d.table[pot(ctlJogA)].describe(d))
	assert.Equal(t, "cw tune", d.table[btn(btnPad2A)].describe(d))
	assert.Equal(t, "split A/B", d.table[btn(btnPad3A)].describe(d))
	assert.Equal(t, "split B/A", d.table[btn(btnPad4A)].describe(d))
	assert.Equal(t, "mode CW", d.table[btn(btnPad1B)].describe(d))
	assert.Equal(t, "control 99", d.quant.controlName(99))
}
