package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(mode operatingMode) (*reconciler, *recordingLEDs) {
	q := newDefaultQuantizer()
	leds := &recordingLEDs{}
	return &reconciler{state: newRadioState(mode, vfoB, q.debouncedControls()), leds: leds}, leds
}

func TestReconcileModeAndVFO(t *testing.T) {
	r, leds := newTestReconciler(modeUSB)

	f, err := decodeStatusFrame(makeStatusFrame(7030000, '0', '0', '0', '3', '0', '0'))
	require.NoError(t, err)
	r.reconcile(f)

	st := r.state.snapshot()
	assert.Equal(t, modeCW, st.mode)
	assert.Equal(t, vfoA, st.vfo)
	assert.False(t, st.splitOn)
	assert.Equal(t, uint64(7030000), st.freq)
	assert.Equal(t, map[byte]bool{btnPad1B: true, btnSyncA: true}, leds.lit())
}

func TestReconcileInvalidatesQuantizerOnModeChange(t *testing.T) {
	r, _ := newTestReconciler(modeUSB)
	_, ok := storedIndex(r.state, ctlSlopeHigh)
	require.True(t, ok)

	f, _ := decodeStatusFrame(makeStatusFrame(7030000, '0', '0', '0', '2', '0', '0'))
	r.reconcile(f)
	_, ok = storedIndex(r.state, ctlSlopeHigh)
	assert.True(t, ok, "same mode keeps slots")

	f, _ = decodeStatusFrame(makeStatusFrame(7030000, '0', '0', '0', '1', '0', '0'))
	r.reconcile(f)
	_, ok = storedIndex(r.state, ctlSlopeHigh)
	assert.False(t, ok)
}

func TestReconcileUnknownModeKeepsMirror(t *testing.T) {
	r, leds := newTestReconciler(modeFSK)

	f, _ := decodeStatusFrame(makeStatusFrame(145500000, '0', '0', '0', '4', '1', '0'))
	r.reconcile(f)

	assert.Equal(t, modeFSK, r.state.getMode())
	assert.Equal(t, map[byte]bool{btnCueA: true}, leds.lit())
}

func TestReconcileSplit(t *testing.T) {
	r, leds := newTestReconciler(modeUSB)

	f, _ := decodeStatusFrame(makeStatusFrame(14025000, '0', '0', '0', '2', '0', '1'))
	r.reconcile(f)
	assert.True(t, r.state.snapshot().splitOn)
	assert.Equal(t, map[byte]bool{btnPad3A: true}, leds.lit())

	f, _ = decodeStatusFrame(makeStatusFrame(14025000, '0', '0', '0', '2', '1', '1'))
	r.reconcile(f)
	assert.Equal(t, vfoB, r.state.snapshot().vfo)
	assert.Equal(t, map[byte]bool{btnPad4A: true}, leds.lit())
}

func TestReconcileMemoryChannelKeepsVFO(t *testing.T) {
	r, leds := newTestReconciler(modeUSB)
	r.state.setVFO(vfoA, false)

	f, err := decodeStatusFrame(makeStatusFrame(14200000, '0', '0', '0', '2', '2', '0'))
	require.NoError(t, err)
	r.reconcile(f)

	st := r.state.snapshot()
	assert.Equal(t, vfoA, st.vfo)
	assert.False(t, st.splitOn)
	assert.Empty(t, leds.lit())
	assert.Equal(t, uint64(14200000), st.freq)

	f, _ = decodeStatusFrame(makeStatusFrame(14200000, '0', '0', '0', '2', '2', '1'))
	r.reconcile(f)
	assert.Equal(t, map[byte]bool{btnPad4A: true}, leds.lit(), "split from memory shows the B/A pattern")
}

func TestReconcileRITAndXIT(t *testing.T) {
	r, leds := newTestReconciler(modeUSB)

	f, _ := decodeStatusFrame(makeStatusFrame(14025000, '1', '1', '1', '2', '0', '0'))
	r.reconcile(f)
	st := r.state.snapshot()
	assert.True(t, st.ritOn)
	assert.True(t, st.xitOn)
	assert.True(t, st.tx)
	assert.True(t, leds.lit()[btnSyncB])
	assert.True(t, leds.lit()[btnCueB])
}

type fakeQuerier struct {
	replies []queryReply
	calls   int
}

type queryReply struct {
	raw []byte
	err error
}

func (q *fakeQuerier) query(mnemonic string) ([]byte, error) {
	q.calls++
	if len(q.replies) == 0 {
		return nil, errNoResponse
	}
	r := q.replies[0]
	q.replies = q.replies[1:]
	return r.raw, r.err
}

func TestPollerTick(t *testing.T) {
	r, _ := newTestReconciler(modeUSB)
	q := &fakeQuerier{replies: []queryReply{
		{err: errNoResponse},
		{raw: []byte("IF000;")},
		{raw: makeStatusFrame(3573000, '0', '0', '0', '6', '0', '0')},
	}}
	p := &poller{link: q, rec: r, interval: time.Millisecond}

	var budget readErrorBudget
	require.NoError(t, p.tick(&budget), "no answer is not fatal")
	require.NoError(t, p.tick(&budget), "malformed answer is not fatal")
	assert.Equal(t, modeUSB, r.state.getMode())
	require.NoError(t, p.tick(&budget))
	assert.Equal(t, modeFSK, r.state.getMode())
}

func TestPollerReadErrorsEscalate(t *testing.T) {
	r, _ := newTestReconciler(modeUSB)
	q := &fakeQuerier{}
	for i := 0; i <= maxConsecutiveReadErrors; i++ {
		q.replies = append(q.replies, queryReply{err: errReadFailed})
	}
	p := &poller{link: q, rec: r}

	var budget readErrorBudget
	for i := 0; i < maxConsecutiveReadErrors; i++ {
		require.NoError(t, p.tick(&budget))
	}
	err := p.tick(&budget)
	assert.True(t, errors.Is(err, errReadFailed))
}

func TestPollerWriteFailureIsFatal(t *testing.T) {
	r, _ := newTestReconciler(modeUSB)
	q := &fakeQuerier{replies: []queryReply{{err: errWriteFailed}}}
	p := &poller{link: q, rec: r}

	var budget readErrorBudget
	assert.True(t, errors.Is(p.tick(&budget), errWriteFailed))
}

func TestPollerRunStops(t *testing.T) {
	r, _ := newTestReconciler(modeUSB)
	q := &fakeQuerier{}
	p := &poller{link: q, rec: r, interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

type fakeReader struct {
	chunks [][]byte
	err    error
}

func (r *fakeReader) readAvailable() ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if len(r.chunks) == 0 {
		return nil, nil
	}
	c := r.chunks[0]
	r.chunks = r.chunks[1:]
	return c, nil
}

func TestSnifferFrameAcrossReads(t *testing.T) {
	r, leds := newTestReconciler(modeUSB)
	frame := makeStatusFrame(10110000, '0', '0', '0', '3', '1', '0')
	src := &fakeReader{chunks: [][]byte{
		[]byte("IF;"),
		frame[:10],
		nil,
		frame[10:],
	}}
	s := &sniffer{link: src, rec: r}

	var budget readErrorBudget
	require.NoError(t, s.tick(&budget))
	assert.Equal(t, modeUSB, r.state.getMode(), "frame not complete yet")
	assert.Len(t, s.pending, 10)
	require.NoError(t, s.tick(&budget))

	st := r.state.snapshot()
	assert.Equal(t, modeCW, st.mode)
	assert.Equal(t, vfoB, st.vfo)
	assert.True(t, leds.lit()[btnPad1B])
	assert.Empty(t, s.pending)
}

func TestSnifferDrainsBacklog(t *testing.T) {
	r, _ := newTestReconciler(modeUSB)
	src := &fakeReader{chunks: [][]byte{
		makeStatusFrame(7030000, '0', '0', '0', '3', '0', '0'),
		[]byte("SM00005;"),
		makeStatusFrame(7030000, '0', '0', '0', '6', '0', '0'),
	}}
	s := &sniffer{link: src, rec: r}

	var budget readErrorBudget
	require.NoError(t, s.tick(&budget))
	assert.Equal(t, modeFSK, r.state.getMode(), "the latest frame wins")
	assert.Empty(t, src.chunks)
}

func TestSnifferIgnoresOtherTraffic(t *testing.T) {
	r, leds := newTestReconciler(modeLSB)
	src := &fakeReader{chunks: [][]byte{[]byte("FA00007074000;SM00012;"), nil}}
	s := &sniffer{link: src, rec: r}

	var budget readErrorBudget
	require.NoError(t, s.tick(&budget))
	require.NoError(t, s.tick(&budget))
	assert.Equal(t, modeLSB, r.state.getMode())
	assert.Empty(t, leds.writes)
}

func TestSnifferLinkClosedIsFatal(t *testing.T) {
	r, _ := newTestReconciler(modeLSB)
	s := &sniffer{link: &fakeReader{err: errLinkClosed}, rec: r}

	var budget readErrorBudget
	assert.True(t, errors.Is(s.tick(&budget), errLinkClosed))
}

func TestSnifferRunStops(t *testing.T) {
	r, _ := newTestReconciler(modeLSB)
	s := &sniffer{link: &fakeReader{}, rec: r, interval: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sniffer did not stop")
	}
}

func TestParseReconcileMode(t *testing.T) {
	for in, want := range map[string]reconcileMode{
		"off": reconcileOff, "0": reconcileOff, "": reconcileOff,
		"poll": reconcilePoll, "1": reconcilePoll,
		"Sniff": reconcileSniff, "2": reconcileSniff,
	} {
		m, err := parseReconcileMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, m, in)
	}
	_, err := parseReconcileMode("listen")
	assert.Error(t, err)
}
