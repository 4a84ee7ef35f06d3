//go:build linux
// +build linux

package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/djcat/djcat/log"
)

// midiInput reads an ALSA rawmidi character device.
type midiInput struct {
	f         *os.File
	closeOnce sync.Once
	closeErr  error
}

func openMIDIInput(path string) (*midiInput, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	log.Print("reading controls from ", path)
	return &midiInput{f: f}, nil
}

func openMIDIOutput(path string) (*midiOutput, *os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, nil, err
	}
	return &midiOutput{w: f}, f, nil
}

func (m *midiInput) close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.f.Close()
	})
	return m.closeErr
}

// run feeds events until ctx is done or the device goes away.
func (m *midiInput) run(ctx context.Context, events chan<- controlEvent) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = m.close()
		case <-stop:
		}
	}()

	var p midiParser
	b := make([]byte, 64)
	for {
		n, err := m.f.Read(b)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		now := time.Now()
		for _, c := range b[:n] {
			ev, ok := p.feed(c, now)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func listMIDIDevices() {
	var devs []string
	for _, pattern := range []string{"/dev/snd/midiC*D*", "/dev/midi*"} {
		m, _ := filepath.Glob(pattern)
		devs = append(devs, m...)
	}
	if len(devs) == 0 {
		log.Print("no midi devices found")
		return
	}
	for _, d := range devs {
		log.Print("midi device: ", d)
	}
}
