package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/djcat/djcat/log"
	"github.com/mattn/go-isatty"
)

const restartWaitSecs = 5

// startupFailed reports an error that keeps the bridge from running and
// waits for the operator to acknowledge it.
func startupFailed(err error) {
	log.Error(err)
	keyboard.deinit()
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Print("press Enter to exit")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}
}

func waitBeforeRestart(osSignal chan os.Signal) (interrupted bool) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for sec := restartWaitSecs; sec > 0; sec-- {
		log.Print("waiting ", sec, " seconds...")
		select {
		case <-t.C:
		case <-osSignal:
			return true
		}
	}
	return false
}

func runSession(cfg config, osSignal chan os.Signal, first bool) (shouldExit bool, exitCode int) {
	s := newSession(cfg)
	if err := s.start(); err != nil {
		if cerr := s.close(); cerr != nil {
			log.Debug("close after failed start: ", cerr)
		}
		if first {
			startupFailed(err)
			return true, 1
		}
		log.Error(err)
		return waitBeforeRestart(osSignal), 0
	}

	if keyboardEnabled && keyboard.events == nil {
		keyboard.init()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx, keyboard.events)
	}()

	stop := func() {
		cancel()
		<-done
		if err := s.close(); err != nil {
			log.Error("can't release devices: ", err)
		}
	}

	select {
	case err := <-done:
		if cerr := s.close(); cerr != nil {
			log.Debug("close after failure: ", cerr)
		}
		log.Error(err)
		return waitBeforeRestart(osSignal), 0
	case <-osSignal:
		log.Print("sigterm received")
		stop()
		return true, 0
	case <-keyboard.quitChan:
		log.Print("quit requested")
		stop()
		return true, 0
	}
}

func main() {
	parseArgs()
	log.Init(verboseLog, quietLog, log.FileConfig{})
	log.Print("djcat: DJ controller to Kenwood CAT bridge")

	cfg, created, err := loadConfig(configPath)
	if created {
		log.Print("created default config ", configPath)
	}
	if err == nil {
		err = overrides.apply(&cfg)
	}
	if err != nil {
		startupFailed(err)
		os.Exit(1)
	}

	log.Init(verboseLog || cfg.Logging.Level == "debug", quietLog, log.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})

	if listPorts {
		listSerialPorts()
	}
	if listMIDI {
		listMIDIDevices()
	}

	statusLogInterval = time.Duration(cfg.Status.IntervalMs) * time.Millisecond
	statusLog.initIfNeeded(quietLog)
	log.SetInterrupt(statusLog.interruptLine)

	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, os.Interrupt, syscall.SIGTERM)

	var shouldExit bool
	var exitCode int
	for first := true; !shouldExit; first = false {
		shouldExit, exitCode = runSession(cfg, osSignal, first)
		if !shouldExit {
			log.Print("restarting session...")
		}
	}

	keyboard.deinit()
	log.Print("exiting")
	log.Sync()
	os.Exit(exitCode)
}
