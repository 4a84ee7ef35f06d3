package main

import (
	"github.com/djcat/djcat/log"
)

type commandSink interface {
	sendCommands(cmds ...catCommand) error
}

type indicatorSink interface {
	setIndicators(writes ...indicatorWrite) error
}

// effects collects what handling one event does to the outside world.
type effects struct {
	commands   []catCommand
	indicators []indicatorWrite
}

func (fx *effects) command(c ...catCommand) {
	fx.commands = append(fx.commands, c...)
}

func (fx *effects) indicate(w ...indicatorWrite) {
	fx.indicators = append(fx.indicators, w...)
}

type dispatcher struct {
	table      map[controlKey]controlAction
	state      *radioState
	quant      *quantizer
	link       commandSink
	leds       indicatorSink
	tuningStep int
}

func newDispatcher(state *radioState, quant *quantizer, link commandSink, leds indicatorSink, tuningStep int) *dispatcher {
	return &dispatcher{
		table:      defaultControlMap(),
		state:      state,
		quant:      quant,
		link:       link,
		leds:       leds,
		tuningStep: tuningStep,
	}
}

// dispatch handles one event to completion. The returned error is a
// transport failure on the radio link; everything else is logged.
func (d *dispatcher) dispatch(ev controlEvent) (effects, error) {
	a, ok := d.table[controlKey{class: ev.class, code: ev.code}]
	if !ok {
		log.Debug("ignoring unmapped control ", ev)
		return effects{}, nil
	}

	var fx effects
	a.plan(d, ev, &fx)
	if len(fx.commands) > 0 {
		log.Debug(a.describe(d), " sends ", fx.commands)
	}
	return fx, d.apply(fx)
}

func (d *dispatcher) apply(fx effects) error {
	if len(fx.commands) > 0 {
		if err := d.link.sendCommands(fx.commands...); err != nil {
			return err
		}
	}
	if len(fx.indicators) > 0 {
		if err := d.leds.setIndicators(fx.indicators...); err != nil {
			log.Error("can't set indicators: ", err)
		}
	}
	return nil
}

// selectMode is the operator mode change used outside of surface events.
func (d *dispatcher) selectMode(m operatingMode) error {
	var fx effects
	modeSelectAction{mode: m}.plan(d, controlEvent{value: 127}, &fx)
	return d.apply(fx)
}

func (d *dispatcher) selectVFO(v vfoSelection) error {
	var fx effects
	vfoSelectAction{vfo: v}.plan(d, controlEvent{value: 127}, &fx)
	return d.apply(fx)
}

func (d *dispatcher) powerOn() error {
	d.state.setFlag(flagPower, true)
	return d.apply(effects{
		commands:   []catCommand{catCmd("PS", 1)},
		indicators: []indicatorWrite{{id: btnRec, on: true}},
	})
}
