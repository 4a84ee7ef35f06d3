//go:build linux
// +build linux

package main

import (
	"errors"
	"os"
	"time"

	"github.com/djcat/djcat/log"
	"github.com/google/goterm/term"
)

const ptyPortName = "pty"

// ptyPort lets a radio simulator attach to the slave side of a pseudo
// terminal while the bridge drives the master side.
type ptyPort struct {
	pty     *term.PTY
	timeout time.Duration
}

func openPTYPort() (*ptyPort, error) {
	pty, err := term.OpenPTY()
	if err != nil {
		return nil, err
	}
	n, err := pty.PTSName()
	if err != nil {
		pty.Close()
		return nil, err
	}
	log.Print("opened ", n, ", attach the radio simulator there")
	return &ptyPort{pty: pty}, nil
}

func (p *ptyPort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

// Read returns 0, nil on timeout like a serial port does.
func (p *ptyPort) Read(b []byte) (int, error) {
	if p.timeout > 0 {
		if err := p.pty.Master.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
			return 0, err
		}
	}
	n, err := p.pty.Master.Read(b)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

func (p *ptyPort) Write(b []byte) (int, error) {
	return p.pty.Master.Write(b)
}

func (p *ptyPort) Close() error {
	return p.pty.Close()
}
