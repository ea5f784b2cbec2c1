package internal_transcribe

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipperai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("transcribe-test"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
		commons.Console(false),
	)
	require.NoError(t, err)
	return logger
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func transientErr() error {
	return &url.Error{Op: "Post", URL: "http://transcribe.local", Err: errors.New("connection refused")}
}

type scriptStep struct {
	text string
	err  error
}

// scriptedTranscriber plays back a fixed sequence of outcomes and keeps
// failing transiently once the script runs out.
type scriptedTranscriber struct {
	mu    sync.Mutex
	steps []scriptStep
	calls int
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, blob []byte) (string, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.mu.Unlock()
	if idx < len(s.steps) {
		return s.steps[idx].text, s.steps[idx].err
	}
	return "", transientErr()
}

func (s *scriptedTranscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeTimer struct {
	rec *timerRecorder
	idx int
}

func (t *fakeTimer) Stop() bool {
	t.rec.mu.Lock()
	defer t.rec.mu.Unlock()
	if t.rec.stopped[t.idx] {
		return false
	}
	t.rec.stopped[t.idx] = true
	return true
}

// timerRecorder captures scheduled waits instead of sleeping; tests fire
// them by hand.
type timerRecorder struct {
	mu      sync.Mutex
	delays  []time.Duration
	fns     []func()
	stopped []bool
}

func (r *timerRecorder) factory(d time.Duration, fn func()) stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	r.fns = append(r.fns, fn)
	r.stopped = append(r.stopped, false)
	return &fakeTimer{rec: r, idx: len(r.fns) - 1}
}

func (r *timerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fns)
}

func (r *timerRecorder) delay(i int) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delays[i]
}

func (r *timerRecorder) fire(i int) {
	r.mu.Lock()
	fn := r.fns[i]
	r.mu.Unlock()
	fn()
}

type outcome struct {
	text string
	err  error
}

func newTestEngine(t *testing.T, transcriber Transcriber, prober Prober) (*Engine, *timerRecorder, chan outcome) {
	t.Helper()
	rec := &timerRecorder{}
	engine := NewEngine(newTestLogger(t), transcriber, prober, 100)
	engine.newTimer = rec.factory
	results := make(chan outcome, 4)
	return engine, rec, results
}

func deliverTo(results chan outcome) DeliverFunc {
	return func(text string, err error) {
		results <- outcome{text: text, err: err}
	}
}

func bigBlob() []byte {
	return make([]byte, 4096)
}

func TestDelayForRetrySchedule(t *testing.T) {
	// Attempt n follows n-1 consecutive transient failures.
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 0},
		{1, 0},
		{2, 0},
		{3, 1 * time.Minute},
		{4, 2 * time.Minute},
		{5, 4 * time.Minute},
		{6, 5 * time.Minute},
		{7, 5 * time.Minute},
		{20, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, delayForRetry(tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}

func TestRapidPhaseThenIntervalPhase(t *testing.T) {
	transcriber := &scriptedTranscriber{} // always transient
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))

	// Three rapid attempts burn through with no timer, then the fourth
	// attempt waits 60s.
	waitFor(t, func() bool { return timers.count() == 1 }, "first interval timer")
	assert.Equal(t, 3, transcriber.callCount())
	assert.Equal(t, 1*time.Minute, timers.delay(0))

	state := engine.State()
	assert.Equal(t, 3, state.RetryCount)
	assert.False(t, state.IsActiveRequest)
	assert.True(t, state.TimerPending)

	timers.fire(0)
	waitFor(t, func() bool { return timers.count() == 2 }, "second interval timer")
	assert.Equal(t, 4, transcriber.callCount())
	assert.Equal(t, 2*time.Minute, timers.delay(1))

	timers.fire(1)
	waitFor(t, func() bool { return timers.count() == 3 }, "third interval timer")
	assert.Equal(t, 4*time.Minute, timers.delay(2))

	timers.fire(2)
	waitFor(t, func() bool { return timers.count() == 4 }, "fourth interval timer")
	assert.Equal(t, 5*time.Minute, timers.delay(3))

	// Tail repeats at 5 minutes indefinitely.
	timers.fire(3)
	waitFor(t, func() bool { return timers.count() == 5 }, "repeating tail timer")
	assert.Equal(t, 5*time.Minute, timers.delay(4))
}

func TestSuccessResetsRetryState(t *testing.T) {
	transcriber := &scriptedTranscriber{steps: []scriptStep{
		{err: transientErr()},
		{err: transientErr()},
		{text: "hello world"},
	}}
	engine, _, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))

	got := <-results
	require.NoError(t, got.err)
	assert.Equal(t, "hello world", got.text)
	assert.Equal(t, 3, transcriber.callCount())
	assert.Equal(t, RetryState{}, engine.State())
}

func TestDefinitiveFailureStopsRetrying(t *testing.T) {
	serverErr := &ServerError{Status: 500, Message: "broken upstream"}
	transcriber := &scriptedTranscriber{steps: []scriptStep{{err: serverErr}}}
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))

	got := <-results
	var gotServer *ServerError
	require.ErrorAs(t, got.err, &gotServer)
	assert.Equal(t, 500, gotServer.Status)
	assert.Equal(t, "broken upstream", gotServer.Message)

	assert.Equal(t, 1, transcriber.callCount())
	assert.Equal(t, 0, timers.count())
	assert.Equal(t, RetryState{}, engine.State())
}

func TestMalformedBodyNotRetried(t *testing.T) {
	transcriber := &scriptedTranscriber{steps: []scriptStep{{err: ErrInvalidResponse}}}
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))

	got := <-results
	assert.ErrorIs(t, got.err, ErrInvalidResponse)
	assert.Equal(t, 1, transcriber.callCount())
	assert.Equal(t, 0, timers.count())
}

func TestTimeoutIsRetried(t *testing.T) {
	transcriber := &scriptedTranscriber{steps: []scriptStep{
		{err: context.DeadlineExceeded},
		{text: "made it"},
	}}
	engine, _, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))

	got := <-results
	require.NoError(t, got.err)
	assert.Equal(t, "made it", got.text)
	assert.Equal(t, 2, transcriber.callCount())
}

func TestSmallBlobRejectedWithoutNetworkCall(t *testing.T) {
	transcriber := &scriptedTranscriber{}
	engine, _, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), make([]byte, 50), deliverTo(results))

	got := <-results
	assert.ErrorIs(t, got.err, ErrRecordingTooShort)
	assert.Equal(t, 0, transcriber.callCount())
}

func TestOfflineRejectedWithoutNetworkCall(t *testing.T) {
	transcriber := &scriptedTranscriber{}
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(false))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))

	got := <-results
	assert.ErrorIs(t, got.err, ErrOffline)
	assert.Equal(t, 0, transcriber.callCount())
	assert.Equal(t, 0, timers.count())
}

func TestForceRetrySkipsWaitWithoutDuplicate(t *testing.T) {
	transcriber := &scriptedTranscriber{steps: []scriptStep{
		{err: transientErr()},
		{err: transientErr()},
		{err: transientErr()},
		{text: "forced through"},
	}}
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))
	waitFor(t, func() bool { return timers.count() == 1 }, "backoff timer")
	assert.Equal(t, 3, transcriber.callCount())

	assert.True(t, engine.ForceRetry())

	got := <-results
	require.NoError(t, got.err)
	assert.Equal(t, "forced through", got.text)
	assert.Equal(t, 4, transcriber.callCount())

	// Firing the cancelled timer afterwards must not launch another attempt.
	timers.fire(0)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 4, transcriber.callCount())
}

func TestForceRetryNoopWhenIdle(t *testing.T) {
	engine, _, _ := newTestEngine(t, &scriptedTranscriber{}, StaticProber(true))
	assert.False(t, engine.ForceRetry())
}

func TestForceRetryKeepsRetryCount(t *testing.T) {
	transcriber := &scriptedTranscriber{} // always transient
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))
	waitFor(t, func() bool { return timers.count() == 1 }, "backoff timer")

	require.True(t, engine.ForceRetry())

	// The forced attempt fails transiently too; the count continues from 3
	// instead of restarting the rapid phase.
	waitFor(t, func() bool { return timers.count() == 2 }, "next backoff timer")
	assert.Equal(t, 2*time.Minute, timers.delay(1))
	assert.Equal(t, 4, engine.State().RetryCount)
}

func TestNewTranscribeSupersedesPendingTimer(t *testing.T) {
	transcriber := &scriptedTranscriber{steps: []scriptStep{
		{err: transientErr()},
		{err: transientErr()},
		{err: transientErr()},
		{text: "second cycle"},
	}}
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))
	waitFor(t, func() bool { return timers.count() == 1 }, "backoff timer")

	// A fresh call takes over; the superseded cycle never delivers.
	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))

	got := <-results
	require.NoError(t, got.err)
	assert.Equal(t, "second cycle", got.text)
	assert.Equal(t, 4, transcriber.callCount())

	timers.fire(0)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 4, transcriber.callCount())
	assert.Len(t, results, 0)
}

func TestCancelAbandonsCycle(t *testing.T) {
	transcriber := &scriptedTranscriber{}
	engine, timers, results := newTestEngine(t, transcriber, StaticProber(true))

	engine.Transcribe(context.Background(), bigBlob(), deliverTo(results))
	waitFor(t, func() bool { return timers.count() == 1 }, "backoff timer")

	engine.Cancel()
	assert.Equal(t, RetryState{}, engine.State())

	timers.fire(0)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, transcriber.callCount())
	assert.Len(t, results, 0)
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, IsTransient(transientErr()))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(ErrOffline))
	assert.False(t, IsTransient(ErrRecordingTooShort))
	assert.False(t, IsTransient(ErrInvalidResponse))
	assert.False(t, IsTransient(&ServerError{Status: 502, Message: "bad gateway"}))
	assert.False(t, IsTransient(errors.New("some application error")))
}

func TestCanceledContextIsDefinitive(t *testing.T) {
	assert.False(t, IsTransient(context.Canceled))
	// transports wrap the cancellation; it must still win over the url.Error match
	assert.False(t, IsTransient(&url.Error{Op: "Post", URL: "http://transcribe.local", Err: context.Canceled}))
	assert.True(t, IsTransient(&url.Error{Op: "Post", URL: "http://transcribe.local", Err: context.DeadlineExceeded}))

	got := make(chan error, 1)
	eng := NewEngine(newTestLogger(t), &scriptedTranscriber{steps: []scriptStep{
		{err: &url.Error{Op: "Post", URL: "http://transcribe.local", Err: context.Canceled}},
	}}, StaticProber(true), 1)
	eng.Transcribe(context.Background(), []byte("audio"), func(_ string, err error) {
		got <- err
	})
	select {
	case err := <-got:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation must end the cycle, not schedule a retry")
	}
	assert.Zero(t, eng.State().RetryCount)
	assert.False(t, eng.State().TimerPending)
}
