package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/djcat/djcat/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	radioCheckAttempts = 3
	blinkTimes         = 3
	blinkPeriod        = 300 * time.Millisecond
)

// session owns everything that lives as long as one connection to the
// radio: the link, the surface devices and the background tasks.
type session struct {
	cfg         config
	blinkPeriod time.Duration

	link        *catLink
	midiIn      *midiInput
	midiOutFile *os.File
	leds        indicatorSink
	rigctld     *rigctldServer

	state  *radioState
	quant  *quantizer
	disp   *dispatcher
	rec    *reconciler
	events chan controlEvent
}

func newSession(cfg config) *session {
	return &session{cfg: cfg, blinkPeriod: blinkPeriod, events: make(chan controlEvent, 64)}
}

// start opens the devices and runs the startup sequence. On error the
// caller must still close.
func (s *session) start() error {
	if err := s.openDevices(); err != nil {
		return err
	}
	return s.startup()
}

func (s *session) openDevices() (err error) {
	if s.link, err = openCATLink(s.cfg.Radio); err != nil {
		return err
	}
	model, err := checkRadio(s.link, radioCheckAttempts)
	if err != nil {
		return fmt.Errorf("radio %s on %s does not answer: %w", s.cfg.Radio.Model, s.cfg.Radio.Port, err)
	}
	log.Print("radio answered with id ", model)

	if s.midiIn, err = openMIDIInput(s.cfg.MIDI.Input); err != nil {
		return fmt.Errorf("can't open midi input: %w", err)
	}
	leds, f, err := openMIDIOutput(s.cfg.MIDI.Output)
	if err != nil {
		return fmt.Errorf("can't open midi output: %w", err)
	}
	s.leds, s.midiOutFile = leds, f
	return nil
}

// startup brings the radio and the surface to the configured defaults over
// an already checked link.
func (s *session) startup() (err error) {
	mode, err := parseOperatingMode(s.cfg.Defaults.Mode)
	if err != nil {
		return err
	}
	vfo, err := parseVFO(s.cfg.Defaults.VFO)
	if err != nil {
		return err
	}

	s.quant = newDefaultQuantizer()
	s.state = newRadioState(mode, vfo, s.quant.debouncedControls())
	s.disp = newDispatcher(s.state, s.quant, s.link, s.leds, s.cfg.Defaults.TuningStep)
	s.rec = &reconciler{state: s.state, leds: s.leds}

	if err = blinkIndicators(s.leds, blinkTimes, s.blinkPeriod); err != nil {
		log.Error("can't blink indicators: ", err)
	}
	if err = s.disp.powerOn(); err != nil {
		return err
	}
	if err = s.disp.selectMode(mode); err != nil {
		return err
	}
	if err = s.disp.selectVFO(vfo); err != nil {
		return err
	}
	for _, c := range s.cfg.Commands {
		log.Debug("startup command ", c)
		if err = s.link.sendLiteral(c); err != nil {
			return err
		}
	}

	if s.cfg.Rigctld.Port != 0 {
		if s.rigctld, err = newRigctldServer(s.cfg.Rigctld.Port, s.state, s.events); err != nil {
			return fmt.Errorf("can't start rigctld: %w", err)
		}
	}
	return nil
}

func (s *session) reconcileTask() func(ctx context.Context) error {
	m, _ := parseReconcileMode(s.cfg.Radio.Reconcile)
	switch m {
	case reconcilePoll:
		p := &poller{link: s.link, rec: s.rec, interval: s.cfg.Radio.pollInterval()}
		return p.run
	case reconcileSniff:
		sn := &sniffer{link: s.link, rec: s.rec, interval: s.cfg.Radio.pollInterval()}
		return sn.run
	}
	return nil
}

// controlLoop is the foreground task: every event is handled to completion
// before the next one is taken.
func (s *session) controlLoop(ctx context.Context, keys <-chan controlEvent) error {
	handle := func(ev controlEvent) error {
		if _, err := s.disp.dispatch(ev); err != nil {
			return fmt.Errorf("can't send to radio: %w", err)
		}
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			if err := handle(ev); err != nil {
				return err
			}
		case ev := <-keys:
			if err := handle(ev); err != nil {
				return err
			}
		}
	}
}

// run blocks until ctx is done or a task fails.
func (s *session) run(ctx context.Context, keys <-chan controlEvent) error {
	log.Print("bridge running, reconcile ", s.cfg.Radio.Reconcile)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.midiIn.run(ctx, s.events) })
	g.Go(func() error { return s.controlLoop(ctx, keys) })
	g.Go(func() error { return statusLog.run(ctx, s.state) })
	if task := s.reconcileTask(); task != nil {
		g.Go(func() error { return task(ctx) })
	}
	if s.rigctld != nil {
		g.Go(func() error { return s.rigctld.run(ctx) })
	}
	return g.Wait()
}

// close releases whatever start managed to open.
func (s *session) close() (err error) {
	if s.leds != nil {
		if lerr := s.leds.setIndicators(allIndicatorWrites(false)...); lerr != nil {
			log.Debug("can't clear indicators: ", lerr)
		}
	}
	if s.rigctld != nil {
		err = multierr.Append(err, s.rigctld.close())
	}
	if s.midiIn != nil {
		err = multierr.Append(err, s.midiIn.close())
	}
	if s.midiOutFile != nil {
		err = multierr.Append(err, s.midiOutFile.Close())
	}
	if s.link != nil {
		err = multierr.Append(err, s.link.close())
	}
	return
}
