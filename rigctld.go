package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/djcat/djcat/log"
)

const (
	rigctldNoError        = iota
	rigctldInvalidParam   = -1
	rigctldUnsupportedCmd = -11
)

// hamlib names the FSK mode RTTY.
var rigctldModeNames = map[operatingMode]string{
	modeCW:  "CW",
	modeUSB: "USB",
	modeLSB: "LSB",
	modeFSK: "RTTY",
}

// rigctldServer lets logging software read the mirror. Set commands are
// queued as button presses so they run through the dispatcher like any
// surface event.
type rigctldServer struct {
	listener net.Listener
	state    *radioState
	events   chan<- controlEvent

	clients sync.WaitGroup
}

func newRigctldServer(port uint16, state *radioState, events chan<- controlEvent) (*rigctldServer, error) {
	l, err := net.Listen("tcp", fmt.Sprint(":", port))
	if err != nil {
		return nil, err
	}
	log.Print("starting internal rigctld on tcp port ", port)
	return &rigctldServer{listener: l, state: state, events: events}, nil
}

func (s *rigctldServer) send(w io.Writer, a ...interface{}) error {
	_, err := io.WriteString(w, fmt.Sprint(a...))
	return err
}

func (s *rigctldServer) sendReplyCode(w io.Writer, code int) error {
	return s.send(w, "RPRT ", code, "\n")
}

func (s *rigctldServer) press(ctx context.Context, code byte) error {
	now := time.Now()
	for _, v := range []byte{127, 0} {
		select {
		case s.events <- controlEvent{class: buttonBank, code: code, value: v, at: now}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *rigctldServer) parseVFOArg(arg string) (vfoSelection, error) {
	if arg == "currVFO" {
		return s.state.snapshot().vfo, nil
	}
	return parseVFO(arg)
}

func (s *rigctldServer) processCmd(ctx context.Context, w io.Writer, cmd string) (close bool, err error) {
	cmdSplit := strings.Fields(cmd)
	if len(cmdSplit) == 0 {
		return false, nil
	}
	st := s.state.snapshot()

	reply := func(code byte) error {
		if err := s.press(ctx, code); err != nil {
			return err
		}
		return s.sendReplyCode(w, rigctldNoError)
	}

	switch {
	case cmd == "\\chk_vfo":
		err = s.send(w, "0\n")
	case cmd == "q":
		err = s.sendReplyCode(w, rigctldNoError)
		close = true
	case cmd == "f":
		err = s.send(w, st.freq, "\n")
	case cmd == "m":
		err = s.send(w, rigctldModeNames[st.mode], "\n0\n")
	case cmdSplit[0] == "M" && len(cmdSplit) >= 2:
		for m, name := range rigctldModeNames {
			if name == cmdSplit[1] {
				for _, i := range modeIndicators {
					if i.mode == m {
						return false, reply(i.led)
					}
				}
			}
		}
		_ = s.sendReplyCode(w, rigctldInvalidParam)
		return false, fmt.Errorf("unknown mode %s", cmdSplit[1])
	case cmd == "v":
		err = s.send(w, "VFO", st.vfo, "\n")
	case cmdSplit[0] == "V" && len(cmdSplit) >= 2:
		var v vfoSelection
		if v, err = s.parseVFOArg(cmdSplit[1]); err != nil {
			_ = s.sendReplyCode(w, rigctldInvalidParam)
			return
		}
		code := btnSyncA
		if v == vfoB {
			code = btnCueA
		}
		err = reply(code)
	case cmd == "s":
		tx := st.vfo
		if st.splitOn {
			tx = 1 - st.vfo
		}
		err = s.send(w, boolDigit(st.splitOn), "\nVFO", tx, "\n")
	case cmdSplit[0] == "S" && len(cmdSplit) >= 2:
		var code byte
		switch {
		case cmdSplit[1] == "0" && st.vfo == vfoA:
			code = btnSyncA
		case cmdSplit[1] == "0":
			code = btnCueA
		case len(cmdSplit) >= 3 && cmdSplit[2] == "VFOA":
			code = btnPad4A
		default:
			code = btnPad3A
		}
		err = reply(code)
	case cmd == "t":
		err = s.send(w, boolDigit(st.tx), "\n")
	default:
		_ = s.sendReplyCode(w, rigctldUnsupportedCmd)
		return false, fmt.Errorf("got unknown cmd %s", cmd)
	}
	return
}

func (s *rigctldServer) clientLoop(ctx context.Context, client net.Conn) {
	defer s.clients.Done()
	defer func() {
		client.Close()
		log.Print("client ", client.RemoteAddr().String(), " disconnected")
	}()
	log.Print("client ", client.RemoteAddr().String(), " connected")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-stop:
		}
	}()

	scanner := bufio.NewScanner(client)
	for scanner.Scan() {
		done, err := s.processCmd(ctx, client, strings.TrimSpace(scanner.Text()))
		if err != nil {
			log.Error(err)
		}
		if done || ctx.Err() != nil {
			return
		}
	}
}

func (s *rigctldServer) close() error {
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *rigctldServer) run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.close()
	}()

	for {
		client, err := s.listener.Accept()
		if err != nil {
			s.clients.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.clients.Add(1)
		go s.clientLoop(ctx, client)
	}
}
