package main

import "time"

type hotkey struct {
	class deviceClass
	code  byte
	value byte
}

// Jog values below 64 turn clockwise.
var hotkeys = map[byte]hotkey{
	'c': {buttonBank, btnPad1B, 127},
	'f': {buttonBank, btnPad2B, 127},
	'u': {buttonBank, btnPad3B, 127},
	'l': {buttonBank, btnPad4B, 127},
	'a': {buttonBank, btnSyncA, 127},
	'b': {buttonBank, btnCueA, 127},
	'r': {buttonBank, btnSyncB, 127},
	'x': {buttonBank, btnCueB, 127},
	'p': {buttonBank, btnRec, 127},
	'=': {buttonBank, btnPlayA, 127},
	']': {continuousBank, byte(ctlJogA), 1},
	'[': {continuousBank, byte(ctlJogA), 127},
}

// hotkeyEvents synthesizes what the surface would send for key k. Buttons
// get a press and a release.
func hotkeyEvents(k byte, now time.Time) []controlEvent {
	h, ok := hotkeys[k]
	if !ok {
		return nil
	}
	ev := controlEvent{class: h.class, code: h.code, value: h.value, at: now}
	if h.class != buttonBank {
		return []controlEvent{ev}
	}
	release := ev
	release.value = 0
	return []controlEvent{ev, release}
}
