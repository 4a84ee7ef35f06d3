package main

import (
	"fmt"
	"time"
)

type deviceClass byte

const (
	buttonBank     deviceClass = 0x90
	continuousBank deviceClass = 0xb0
)

func (c deviceClass) String() string {
	switch c {
	case buttonBank:
		return "button"
	case continuousBank:
		return "continuous"
	}
	return fmt.Sprintf("class(0x%02x)", byte(c))
}

// controlEvent is one reading from a control surface. For buttons value is
// 127 when pressed and 0 when released.
type controlEvent struct {
	class   deviceClass
	code    byte
	value   byte
	channel byte
	at      time.Time
}

func (e controlEvent) pressed() bool {
	return e.value > 0
}

func (e controlEvent) String() string {
	return fmt.Sprintf("%v/%d=%d", e.class, e.code, e.value)
}

type controlKey struct {
	class deviceClass
	code  byte
}

// Continuous bank control numbers.
const (
	ctlJogA        controlID = 48
	ctlJogB        controlID = 49
	ctlGainSlider  controlID = 54
	ctlTXPower     controlID = 57
	ctlSlopeLow    controlID = 59
	ctlFilterWidth controlID = 60
	ctlReserved    controlID = 61
	ctlSlopeHigh   controlID = 63
	ctlIFShift     controlID = 64
)

// Button note numbers. Every button has an LED with the same number.
const (
	btnPad1A  byte = 1
	btnPad2A  byte = 2
	btnPad3A  byte = 3
	btnPad4A  byte = 4
	btnPlayA  byte = 33
	btnCueA   byte = 34
	btnSyncA  byte = 35
	btnRec    byte = 43
	ledAuto   byte = 45
	ledMode   byte = 48
	btnPad1B  byte = 49
	btnPad2B  byte = 50
	btnPad3B  byte = 51
	btnPad4B  byte = 52
	btnPlayB  byte = 81
	btnCueB   byte = 82
	btnSyncB  byte = 83
	ledUnused byte = 0
)

var allIndicators = []byte{
	btnPad1A, btnPad2A, btnPad3A, btnPad4A, btnPlayA, btnCueA, btnSyncA, btnRec, ledAuto, ledMode,
	btnPad1B, btnPad2B, btnPad3B, btnPad4B, btnPlayB, btnCueB, btnSyncB,
}

var modeIndicators = []struct {
	mode operatingMode
	led  byte
}{
	{modeCW, btnPad1B},
	{modeFSK, btnPad2B},
	{modeUSB, btnPad3B},
	{modeLSB, btnPad4B},
}

var vfoIndicators = []struct {
	vfo   vfoSelection
	split bool
	led   byte
}{
	{vfoA, false, btnSyncA},
	{vfoB, false, btnCueA},
	{vfoA, true, btnPad3A},
	{vfoB, true, btnPad4A},
}

type indicatorWrite struct {
	id byte
	on bool
}

func modeIndicatorWrites(m operatingMode) (w []indicatorWrite) {
	for _, i := range modeIndicators {
		w = append(w, indicatorWrite{id: i.led, on: i.mode == m})
	}
	return
}

func vfoIndicatorWrites(v vfoSelection, split bool) (w []indicatorWrite) {
	for _, i := range vfoIndicators {
		w = append(w, indicatorWrite{id: i.led, on: i.vfo == v && i.split == split})
	}
	return
}

func modeCommand(m operatingMode) catCommand {
	return catCmd("MD", m.catDigit())
}

func vfoCommands(v vfoSelection, split bool) []catCommand {
	rx := catCmd("FR", int(v))
	if !split {
		return []catCommand{rx}
	}
	return []catCommand{rx, catCmd("FT", int(1-v))}
}

func onlyInCW(s radioSnapshot) bool {
	return s.mode == modeCW
}

// defaultControlMap is the layout of the two deck DJ controller.
func defaultControlMap() map[controlKey]controlAction {
	btn := func(code byte) controlKey { return controlKey{class: buttonBank, code: code} }
	pot := func(id controlID) controlKey { return controlKey{class: continuousBank, code: byte(id)} }

	return map[controlKey]controlAction{
		pot(ctlJogA):        jogAction{name: "vfo", up: "UP", down: "DN", stepped: true},
		pot(ctlJogB):        jogAction{name: "rit", up: "RU", down: "RD"},
		pot(ctlGainSlider):  linearAction{name: "af gain", mapping: linearMapping{mnemonic: "AG", low: 0, high: 254}},
		pot(ctlTXPower):     linearAction{name: "tx power", mapping: linearMapping{mnemonic: "PC", low: 5, high: 100}},
		pot(ctlSlopeLow):    quantizedAction{id: ctlSlopeLow},
		pot(ctlFilterWidth): quantizedAction{id: ctlFilterWidth},
		pot(ctlReserved):    noopAction{},
		pot(ctlSlopeHigh):   quantizedAction{id: ctlSlopeHigh},
		pot(ctlIFShift):     quantizedAction{id: ctlIFShift},

		btn(btnPad1A): momentaryAction{name: "tf-set", press: []catCommand{catCmd("TS", 1)}, release: []catCommand{catCmd("TS", 0)}, led: btnPad1A},
		btn(btnPad2A): momentaryAction{name: "cw tune", press: []catCommand{catCmd("CA", 1)}, release: []catCommand{catCmd("CA", 0)}, led: btnPad2A, guard: onlyInCW},
		btn(btnPad3A): vfoSelectAction{vfo: vfoA, split: true},
		btn(btnPad4A): vfoSelectAction{vfo: vfoB, split: true},
		btn(btnPlayA): momentaryAction{name: "a=b", press: []catCommand{catBare("VV")}, led: btnPlayA},
		btn(btnCueA):  vfoSelectAction{vfo: vfoB},
		btn(btnSyncA): vfoSelectAction{vfo: vfoA},
		btn(btnRec):   latchingToggleAction{flag: flagPower, mnemonic: "PS", led: btnRec},
		btn(btnPad1B): modeSelectAction{mode: modeCW},
		btn(btnPad2B): modeSelectAction{mode: modeFSK},
		btn(btnPad3B): modeSelectAction{mode: modeUSB},
		btn(btnPad4B): modeSelectAction{mode: modeLSB},
		btn(btnPlayB): momentaryAction{name: "rit clear", press: []catCommand{catBare("RC")}, led: btnPlayB},
		btn(btnCueB):  latchingToggleAction{flag: flagXIT, mnemonic: "XT", led: btnCueB},
		btn(btnSyncB): latchingToggleAction{flag: flagRIT, mnemonic: "RT", led: btnSyncB},
	}
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// controlAction is one entry of the control map.
type controlAction interface {
	plan(d *dispatcher, ev controlEvent, fx *effects)
	describe(d *dispatcher) string
}

// momentaryAction acts on press and on release. When guard rejects the
// press it is treated like a release.
type momentaryAction struct {
	name    string
	press   []catCommand
	release []catCommand
	led     byte
	guard   func(radioSnapshot) bool
}

func (a momentaryAction) describe(*dispatcher) string { return a.name }

func (a momentaryAction) plan(d *dispatcher, ev controlEvent, fx *effects) {
	on := ev.pressed()
	if on && a.guard != nil && !a.guard(d.state.snapshot()) {
		on = false
	}
	if on {
		fx.command(a.press...)
	} else {
		fx.command(a.release...)
	}
	if a.led != ledUnused {
		fx.indicate(indicatorWrite{id: a.led, on: on})
	}
}

type latchingToggleAction struct {
	flag     toggleFlag
	mnemonic string
	led      byte
}

func (a latchingToggleAction) describe(*dispatcher) string { return a.flag.String() + " toggle" }

func (a latchingToggleAction) plan(d *dispatcher, ev controlEvent, fx *effects) {
	if !ev.pressed() {
		return
	}
	on := d.state.toggle(a.flag)
	fx.command(catCmd(a.mnemonic, boolDigit(on)))
	fx.indicate(indicatorWrite{id: a.led, on: on})
}

type modeSelectAction struct {
	mode operatingMode
}

func (a modeSelectAction) describe(*dispatcher) string { return "mode " + a.mode.String() }

func (a modeSelectAction) plan(d *dispatcher, ev controlEvent, fx *effects) {
	if !ev.pressed() {
		return
	}
	d.state.setMode(a.mode)
	fx.command(modeCommand(a.mode))
	fx.indicate(modeIndicatorWrites(a.mode)...)
}

type vfoSelectAction struct {
	vfo   vfoSelection
	split bool
}

func (a vfoSelectAction) describe(*dispatcher) string {
	if a.split {
		return "split " + a.vfo.String() + "/" + (1 - a.vfo).String()
	}
	return "vfo " + a.vfo.String()
}

func (a vfoSelectAction) plan(d *dispatcher, ev controlEvent, fx *effects) {
	if !ev.pressed() {
		return
	}
	d.state.setVFO(a.vfo, a.split)
	fx.command(vfoCommands(a.vfo, a.split)...)
	fx.indicate(vfoIndicatorWrites(a.vfo, a.split)...)
}

type quantizedAction struct {
	id controlID
}

func (a quantizedAction) describe(d *dispatcher) string { return d.quant.controlName(a.id) }

func (a quantizedAction) plan(d *dispatcher, ev controlEvent, fx *effects) {
	mode := d.state.getMode()
	if cmd, _, ok := d.quant.quantize(a.id, int(ev.value), mode, d.state); ok {
		fx.command(cmd)
	}
}

type linearAction struct {
	name    string
	mapping linearMapping
}

func (a linearAction) describe(*dispatcher) string { return a.name }

func (a linearAction) plan(d *dispatcher, ev controlEvent, fx *effects) {
	fx.command(a.mapping.apply(int(ev.value)))
}

// jogAction turns a relative encoder tick into an up or down command.
// Readings below 64 are clockwise.
type jogAction struct {
	name    string
	up      string
	down    string
	stepped bool
}

func (a jogAction) describe(*dispatcher) string { return a.name + " jog" }

func (a jogAction) plan(d *dispatcher, ev controlEvent, fx *effects) {
	mnemonic := a.down
	if ev.value < 64 {
		mnemonic = a.up
	}
	if a.stepped {
		fx.command(catCmd(mnemonic, d.tuningStep))
	} else {
		fx.command(catBare(mnemonic))
	}
}

type noopAction struct{}

func (noopAction) describe(*dispatcher) string { return "reserved" }

func (noopAction) plan(*dispatcher, controlEvent, *effects) {}
