package main

import (
	"fmt"
	"strings"
	"sync"
)

type operatingMode int

const (
	modeCW operatingMode = iota
	modeUSB
	modeLSB
	modeFSK
)

var operatingModes = []struct {
	mode     operatingMode
	name     string
	catDigit int
}{
	{modeCW, "CW", 3},
	{modeUSB, "USB", 2},
	{modeLSB, "LSB", 1},
	{modeFSK, "FSK", 6},
}

func (m operatingMode) String() string {
	for _, om := range operatingModes {
		if om.mode == m {
			return om.name
		}
	}
	return fmt.Sprint("mode(", int(m), ")")
}

func (m operatingMode) catDigit() int {
	for _, om := range operatingModes {
		if om.mode == m {
			return om.catDigit
		}
	}
	return 0
}

func parseOperatingMode(s string) (operatingMode, error) {
	for _, om := range operatingModes {
		if strings.EqualFold(om.name, s) {
			return om.mode, nil
		}
	}
	return 0, fmt.Errorf("unknown operating mode %q", s)
}

// modeFromCATDigit maps the mode digit of a status frame. Modes the bridge
// does not drive (FM, AM, reverse CW/FSK) report ok == false.
func modeFromCATDigit(d byte) (m operatingMode, ok bool) {
	for _, om := range operatingModes {
		if int(d-'0') == om.catDigit {
			return om.mode, true
		}
	}
	return 0, false
}

type vfoSelection int

const (
	vfoA vfoSelection = iota
	vfoB
)

func (v vfoSelection) String() string {
	if v == vfoB {
		return "B"
	}
	return "A"
}

func parseVFO(s string) (vfoSelection, error) {
	switch strings.TrimPrefix(strings.ToUpper(s), "VFO") {
	case "A":
		return vfoA, nil
	case "B":
		return vfoB, nil
	}
	return 0, fmt.Errorf("unknown vfo %q", s)
}

type toggleFlag int

const (
	flagRIT toggleFlag = iota
	flagXIT
	flagPower
)

func (f toggleFlag) String() string {
	switch f {
	case flagRIT:
		return "RIT"
	case flagXIT:
		return "XIT"
	case flagPower:
		return "power"
	}
	return "flag"
}

// controlID names a quantized control; it is the control number on the
// continuous bank.
type controlID byte

// radioSnapshot is a copy of the mirror taken under the lock.
type radioSnapshot struct {
	mode    operatingMode
	vfo     vfoSelection
	splitOn bool
	ritOn   bool
	xitOn   bool
	powerOn bool
	tx      bool
	freq    uint64
}

// radioState mirrors what the bridge believes the radio is doing. All
// methods are short critical sections; no I/O happens under the lock.
type radioState struct {
	mutex sync.Mutex

	radioSnapshot
	quantIndex map[controlID]int
}

func newRadioState(mode operatingMode, vfo vfoSelection, debounced []controlID) *radioState {
	s := &radioState{
		radioSnapshot: radioSnapshot{mode: mode, vfo: vfo},
		quantIndex:    make(map[controlID]int),
	}
	// Pots are assumed parked at zero at startup.
	for _, id := range debounced {
		s.quantIndex[id] = 0
	}
	return s
}

func (s *radioState) snapshot() radioSnapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.radioSnapshot
}

func (s *radioState) getMode() operatingMode {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.mode
}

// setMode stores the mode. When it differs from the stored one every
// debounce slot is invalidated, since the tables changed meaning.
func (s *radioState) setMode(m operatingMode) (changed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.mode == m {
		return false
	}
	s.mode = m
	s.quantIndex = make(map[controlID]int)
	return true
}

func (s *radioState) setVFO(v vfoSelection, split bool) (changed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	changed = s.vfo != v || s.splitOn != split
	s.vfo = v
	s.splitOn = split
	return
}

func (s *radioState) flagPtr(f toggleFlag) *bool {
	switch f {
	case flagRIT:
		return &s.ritOn
	case flagXIT:
		return &s.xitOn
	default:
		return &s.powerOn
	}
}

// toggle flips a flag and returns its new value as one atomic step.
func (s *radioState) toggle(f toggleFlag) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p := s.flagPtr(f)
	*p = !*p
	return *p
}

func (s *radioState) setFlag(f toggleFlag, v bool) (changed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	p := s.flagPtr(f)
	changed = *p != v
	*p = v
	return
}

func (s *radioState) setTX(tx bool, freq uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tx = tx
	s.freq = freq
}

// swapIndex records idx as the last emitted index of id and reports whether
// it differs from the previous one. The store is refused when the mode moved
// on since the caller read it.
func (s *radioState) swapIndex(id controlID, mode operatingMode, idx int) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.mode != mode {
		return false
	}
	if prev, ok := s.quantIndex[id]; ok && prev == idx {
		return false
	}
	s.quantIndex[id] = idx
	return true
}
