package main

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

type recordingSink struct {
	mutex sync.Mutex
	cmds  []catCommand
	err   error
}

func (s *recordingSink) sendCommands(cmds ...catCommand) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.err != nil {
		return s.err
	}
	s.cmds = append(s.cmds, cmds...)
	return nil
}

func (s *recordingSink) encoded() (r []string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, c := range s.cmds {
		r = append(r, c.String())
	}
	return
}

type recordingLEDs struct {
	mutex  sync.Mutex
	writes []indicatorWrite
}

func (l *recordingLEDs) setIndicators(writes ...indicatorWrite) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.writes = append(l.writes, writes...)
	return nil
}

// lit replays every write and returns the LEDs left on.
func (l *recordingLEDs) lit() map[byte]bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	on := make(map[byte]bool)
	for _, w := range l.writes {
		if w.on {
			on[w.id] = true
		} else {
			delete(on, w.id)
		}
	}
	return on
}

func (l *recordingLEDs) reset() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.writes = nil
}

// fakePort is an in-memory serial port. Writes containing a known request
// queue its answer for reading.
type fakePort struct {
	mutex    sync.Mutex
	written  bytes.Buffer
	pending  [][]byte
	answers  map[string][]byte
	writeErr error
	readErr  error
	closed   bool
	timeout  time.Duration
}

func newFakePort() *fakePort {
	return &fakePort{answers: make(map[string][]byte)}
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) feed(chunks ...[]byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.pending = append(p.pending, chunks...)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return 0, errors.New("port closed")
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written.Write(b)
	for req, ans := range p.answers {
		if bytes.Contains(b, []byte(req)) {
			p.pending = append(p.pending, append([]byte(nil), ans...))
		}
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mutex.Lock()
	if p.readErr != nil {
		p.mutex.Unlock()
		return 0, p.readErr
	}
	if len(p.pending) == 0 {
		p.mutex.Unlock()
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	defer p.mutex.Unlock()

	n := copy(b, p.pending[0])
	p.pending[0] = p.pending[0][n:]
	if len(p.pending[0]) == 0 {
		p.pending = p.pending[1:]
	}
	return n, nil
}

func (p *fakePort) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.closed = true
	return nil
}

func (p *fakePort) writtenString() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.written.String()
}

// makeStatusFrame builds an IF answer the way the radio lays it out.
func makeStatusFrame(freq uint64, rit, xit, tx, mode, vfo, split byte) []byte {
	return []byte(fmt.Sprintf("IF%011d     +0000%c%c000%c%c%c0%c0000;",
		freq, rit, xit, tx, mode, vfo, split))
}

// storedIndex reads the debounce slot of id.
func storedIndex(s *radioState, id controlID) (idx int, ok bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	idx, ok = s.quantIndex[id]
	return
}
