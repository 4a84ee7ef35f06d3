package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/djcat/djcat/log"
)

type reconcileMode int

const (
	reconcileOff reconcileMode = iota
	reconcilePoll
	reconcileSniff
)

func (m reconcileMode) String() string {
	switch m {
	case reconcilePoll:
		return "poll"
	case reconcileSniff:
		return "sniff"
	}
	return "off"
}

func parseReconcileMode(s string) (reconcileMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "0", "":
		return reconcileOff, nil
	case "poll", "1":
		return reconcilePoll, nil
	case "sniff", "2":
		return reconcileSniff, nil
	}
	return reconcileOff, fmt.Errorf("unknown reconcile mode %q", s)
}

const maxConsecutiveReadErrors = 5

// readErrorBudget turns a run of failed reads into a fatal link error.
type readErrorBudget struct {
	count int
}

func (b *readErrorBudget) fail(err error) error {
	b.count++
	if b.count > maxConsecutiveReadErrors {
		return fmt.Errorf("%d consecutive read errors: %w", b.count, err)
	}
	log.Warnf("read from radio failed (%d/%d): %v", b.count, maxConsecutiveReadErrors, err)
	return nil
}

func (b *readErrorBudget) ok() {
	b.count = 0
}

// reconciler drives the mirror and the indicators toward a status frame.
// It never sends anything to the radio.
type reconciler struct {
	state *radioState
	leds  indicatorSink
}

func (r *reconciler) reconcile(f statusFrame) {
	var writes []indicatorWrite

	if mode, ok := modeFromCATDigit(f.modeDigit); !ok {
		log.Debugf("radio reports mode digit %c, keeping %v", f.modeDigit, r.state.getMode())
	} else if r.state.setMode(mode) {
		log.Print("radio changed mode to ", mode)
		writes = append(writes, modeIndicatorWrites(mode)...)
	}

	if v, split, ok := statusVFO(f); !ok {
		log.Debugf("radio reports vfo digit %c, keeping vfo indicators", f.vfoDigit)
	} else {
		if r.state.setVFO(v, split) {
			log.Debug("radio vfo ", v, " split ", split)
		}
		writes = append(writes, vfoIndicatorWrites(v, split)...)
	}

	if r.state.setFlag(flagRIT, f.ritOn) {
		writes = append(writes, indicatorWrite{id: btnSyncB, on: f.ritOn})
	}
	if r.state.setFlag(flagXIT, f.xitOn) {
		writes = append(writes, indicatorWrite{id: btnCueB, on: f.xitOn})
	}
	r.state.setTX(f.tx, f.freq)

	if err := r.leds.setIndicators(writes...); err != nil {
		log.Error("can't set indicators: ", err)
	}
}

// statusVFO maps the frame onto a VFO selection. Without split only VFO A
// and B are understood; a memory channel leaves the selection alone. With
// split anything but A is shown as the B/A pattern.
func statusVFO(f statusFrame) (v vfoSelection, split bool, ok bool) {
	split = f.splitDigit == '1'
	switch {
	case f.vfoDigit == '0':
		return vfoA, split, true
	case f.vfoDigit == '1' || split:
		return vfoB, split, true
	}
	return vfoA, false, false
}

type statusQuerier interface {
	query(mnemonic string) ([]byte, error)
}

// poller asks the radio for its status once per interval.
type poller struct {
	link     statusQuerier
	rec      *reconciler
	interval time.Duration
}

func (p *poller) run(ctx context.Context) error {
	var budget readErrorBudget
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.interval):
		}

		if err := p.tick(&budget); err != nil {
			return err
		}
	}
}

func (p *poller) tick(budget *readErrorBudget) error {
	raw, err := p.link.query(statusFrameMnemonic)
	switch {
	case errors.Is(err, errNoResponse):
		log.Debug("no status answer this tick")
		return nil
	case errors.Is(err, errReadFailed):
		return budget.fail(err)
	case err != nil:
		return err
	}
	budget.ok()

	f, err := decodeStatusFrame(raw)
	if err != nil {
		log.Debug(err)
		return nil
	}
	p.rec.reconcile(f)
	return nil
}

type passiveReader interface {
	readAvailable() ([]byte, error)
}

// maxSniffReads bounds how much backlog one sniff tick drains.
const maxSniffReads = 16

// sniffer watches traffic that another program provokes and reconciles
// from the status frames it sees.
type sniffer struct {
	link     passiveReader
	rec      *reconciler
	interval time.Duration
	pending  []byte
}

func (s *sniffer) run(ctx context.Context) error {
	var budget readErrorBudget
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}

		if err := s.tick(&budget); err != nil {
			return err
		}
	}
}

// tick drains what arrived since the last tick.
func (s *sniffer) tick(budget *readErrorBudget) error {
	for i := 0; i < maxSniffReads; i++ {
		b, err := s.link.readAvailable()
		if errors.Is(err, errReadFailed) {
			return budget.fail(err)
		} else if err != nil {
			return err
		}
		budget.ok()
		if len(b) == 0 {
			return nil
		}
		s.consume(b)
	}
	return nil
}

func (s *sniffer) consume(b []byte) {
	frames, rest, malformed := scanStatusFrames(append(s.pending, b...))
	if malformed > 0 {
		log.Debug("skipped ", malformed, " malformed status frames")
	}
	s.pending = append(s.pending[:0], rest...)
	if len(s.pending) > statusFrameLen {
		s.pending = s.pending[len(s.pending)-statusFrameLen:]
	}

	for _, f := range frames {
		s.rec.reconcile(f)
	}
}
