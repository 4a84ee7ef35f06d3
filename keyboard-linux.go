//go:build linux
// +build linux

package main

import (
	"os"
	"os/exec"
	"time"

	"github.com/djcat/djcat/log"
)

type keyboardStruct struct {
	events   chan controlEvent
	quitChan chan bool
}

var keyboard keyboardStruct

func (s *keyboardStruct) handleKey(k byte) {
	switch k {
	case 'q':
		select {
		case s.quitChan <- true:
		default:
		}
	case '\n':
		statusLog.newLine()
	default:
		for _, ev := range hotkeyEvents(k, time.Now()) {
			select {
			case s.events <- ev:
			default:
				log.Debug("dropping key ", string(k), ", no session is reading")
			}
		}
	}
}

func (s *keyboardStruct) loop() {
	var b []byte = make([]byte, 1)
	for {
		n, err := os.Stdin.Read(b)
		if err != nil {
			return
		}
		if n > 0 {
			s.handleKey(b[0])
		}
	}
}

func (s *keyboardStruct) init() {
	s.events = make(chan controlEvent, 16)
	s.quitChan = make(chan bool, 1)

	if err := exec.Command("stty", "-F", "/dev/tty", "cbreak", "min", "1").Run(); err != nil {
		log.Error("can't disable input buffering")
	}
	if err := exec.Command("stty", "-F", "/dev/tty", "-echo").Run(); err != nil {
		log.Error("can't disable displaying entered characters")
	}

	go s.loop()
}

func (s *keyboardStruct) deinit() {
	if s.events == nil {
		return
	}
	_ = exec.Command("stty", "-F", "/dev/tty", "-cbreak", "echo").Run()
}
