package main

import (
	"io"
	"sync"
	"time"
)

const (
	midiNoteOff       = 0x80
	midiNoteOn        = 0x90
	midiControlChange = 0xb0
	midiProgramChange = 0xc0
	midiChanPressure  = 0xd0
	midiSystem        = 0xf0
	midiRealtime      = 0xf8
	midiLEDOn         = 0x7f
)

// midiParser turns a raw MIDI byte stream into control events. It keeps
// running status, skips realtime bytes and drops system messages.
type midiParser struct {
	status byte
	data   [2]byte
	n      int
}

func midiDataLen(status byte) int {
	switch status & 0xf0 {
	case midiProgramChange, midiChanPressure:
		return 1
	}
	return 2
}

func (p *midiParser) feed(b byte, now time.Time) (ev controlEvent, ok bool) {
	switch {
	case b >= midiRealtime:
		return
	case b >= midiSystem:
		p.status = 0
		p.n = 0
		return
	case b&0x80 != 0:
		p.status = b
		p.n = 0
		return
	case p.status == 0:
		return
	}

	p.data[p.n] = b
	p.n++
	if p.n < midiDataLen(p.status) {
		return
	}
	p.n = 0

	ev = controlEvent{
		code:    p.data[0],
		value:   p.data[1],
		channel: p.status & 0x0f,
		at:      now,
	}
	switch p.status & 0xf0 {
	case midiNoteOn:
		ev.class = buttonBank
	case midiNoteOff:
		ev.class = buttonBank
		ev.value = 0
	case midiControlChange:
		ev.class = continuousBank
	default:
		return controlEvent{}, false
	}
	return ev, true
}

// midiOutput lights the surface LEDs with note on messages.
type midiOutput struct {
	mutex sync.Mutex
	w     io.Writer
}

func (o *midiOutput) setIndicators(writes ...indicatorWrite) error {
	if len(writes) == 0 {
		return nil
	}
	b := make([]byte, 0, len(writes)*3)
	for _, w := range writes {
		var v byte
		if w.on {
			v = midiLEDOn
		}
		b = append(b, midiNoteOn, w.id, v)
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	_, err := o.w.Write(b)
	return err
}

func allIndicatorWrites(on bool) (w []indicatorWrite) {
	for _, id := range allIndicators {
		w = append(w, indicatorWrite{id: id, on: on})
	}
	return
}

// blinkIndicators flashes every LED so the operator sees the bridge is up.
func blinkIndicators(leds indicatorSink, times int, period time.Duration) error {
	for i := 0; i < times; i++ {
		if err := leds.setIndicators(allIndicatorWrites(true)...); err != nil {
			return err
		}
		time.Sleep(period)
		if err := leds.setIndicators(allIndicatorWrites(false)...); err != nil {
			return err
		}
		time.Sleep(period)
	}
	return nil
}
