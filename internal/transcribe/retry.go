// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcribe

import (
	"context"
	"sync"
	"time"

	"github.com/clipperai/pkg/commons"
)

// rapidAttempts is the number of consecutive transient failures that are
// retried with zero delay before the interval schedule kicks in.
const rapidAttempts = 3

// intervalSchedule holds the waits for the interval phase. The last entry
// repeats indefinitely; retries never exhaust on their own.
var intervalSchedule = []time.Duration{
	1 * time.Minute,
	2 * time.Minute,
	4 * time.Minute,
	5 * time.Minute,
}

// delayForRetry returns the wait before the attempt that follows retryCount
// consecutive transient failures. Attempts 1-3 fire immediately; attempt 4
// waits 60s, then 120s, 240s, 300s, and 300s repeating.
func delayForRetry(retryCount int) time.Duration {
	if retryCount < rapidAttempts {
		return 0
	}
	idx := retryCount - rapidAttempts
	if idx >= len(intervalSchedule) {
		idx = len(intervalSchedule) - 1
	}
	return intervalSchedule[idx]
}

// RetryState is the externally observable retry position. IsActiveRequest is
// true while an attempt is on the wire and false while waiting out a backoff
// timer, so a caller can render "retrying now" versus "waiting to retry".
type RetryState struct {
	RetryCount      int  `json:"retryCount"`
	IsActiveRequest bool `json:"isActiveRequest"`
	TimerPending    bool `json:"timerPending"`
}

// DeliverFunc receives the terminal outcome of a transcription cycle: the
// transcript on success, or a definitive error. Transient failures never
// reach it.
type DeliverFunc func(text string, err error)

type stopper interface {
	Stop() bool
}

type timerFactory func(d time.Duration, fn func()) stopper

func afterFunc(d time.Duration, fn func()) stopper {
	return time.AfterFunc(d, fn)
}

type attempt struct {
	ctx     context.Context
	blob    []byte
	deliver DeliverFunc
}

// Engine drives transcription attempts through the two-phase retry policy.
// At most one cycle is live at a time; starting a new one supersedes any
// pending backoff timer so a stale retry can never fire after the caller has
// moved on.
type Engine struct {
	logger      commons.Logger
	transcriber Transcriber
	prober      Prober
	minBytes    int
	newTimer    timerFactory

	mu      sync.Mutex
	gen     uint64
	state   RetryState
	timer   stopper
	pending *attempt
}

func NewEngine(logger commons.Logger, transcriber Transcriber, prober Prober, minBlobBytes int) *Engine {
	return &Engine{
		logger:      logger,
		transcriber: transcriber,
		prober:      prober,
		minBytes:    minBlobBytes,
		newTimer:    afterFunc,
	}
}

// Transcribe starts a new transcription cycle. Preconditions are checked
// before any network traffic: connectivity first, then minimum blob size.
// Precondition failures are delivered synchronously and enter no retry loop.
func (e *Engine) Transcribe(ctx context.Context, blob []byte, deliver DeliverFunc) {
	e.mu.Lock()
	e.cancelTimerLocked()
	e.gen++
	gen := e.gen
	e.state = RetryState{}
	e.pending = &attempt{ctx: ctx, blob: blob, deliver: deliver}
	e.mu.Unlock()

	if e.prober != nil && !e.prober.Online() {
		e.conclude(gen, "", ErrOffline)
		return
	}
	if len(blob) < e.minBytes {
		e.conclude(gen, "", ErrRecordingTooShort)
		return
	}
	go e.attempt(gen)
}

// ForceRetry cancels a pending backoff timer and fires one immediate attempt
// without resetting the retry count. It reports whether a wait was actually
// skipped; it is a no-op while an attempt is already on the wire or when no
// cycle is live.
func (e *Engine) ForceRetry() bool {
	e.mu.Lock()
	if e.pending == nil || e.timer == nil {
		e.mu.Unlock()
		return false
	}
	e.cancelTimerLocked()
	gen := e.gen
	e.mu.Unlock()

	go e.attempt(gen)
	return true
}

// Cancel abandons the live cycle, if any. The deliver callback is never
// invoked for an abandoned cycle.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelTimerLocked()
	e.gen++
	e.pending = nil
	e.state = RetryState{}
}

func (e *Engine) State() RetryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) attempt(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.pending == nil {
		e.mu.Unlock()
		return
	}
	e.state.IsActiveRequest = true
	e.state.TimerPending = false
	job := e.pending
	e.mu.Unlock()

	text, err := e.transcriber.Transcribe(job.ctx, job.blob)
	if err == nil {
		e.conclude(gen, text, nil)
		return
	}
	if !IsTransient(err) {
		e.logger.Warnf("transcribe: definitive failure, not retrying: %v", err)
		e.conclude(gen, "", err)
		return
	}

	e.mu.Lock()
	if gen != e.gen || e.pending == nil {
		e.mu.Unlock()
		return
	}
	e.state.RetryCount++
	e.state.IsActiveRequest = false
	delay := delayForRetry(e.state.RetryCount)
	e.logger.Infof("transcribe: transient failure %d, next attempt in %s: %v",
		e.state.RetryCount, delay, err)
	if delay == 0 {
		e.mu.Unlock()
		e.attempt(gen)
		return
	}
	e.state.TimerPending = true
	e.timer = e.newTimer(delay, func() { e.onTimer(gen) })
	e.mu.Unlock()
}

func (e *Engine) onTimer(gen uint64) {
	e.mu.Lock()
	// timer == nil means the wait was cancelled after this callback was
	// already queued; the attempt it would have fired belongs to whoever
	// cancelled it.
	if gen != e.gen || e.pending == nil || e.timer == nil {
		e.mu.Unlock()
		return
	}
	e.timer = nil
	e.state.TimerPending = false
	e.mu.Unlock()
	e.attempt(gen)
}

// conclude ends the cycle and hands the terminal outcome to the caller,
// resetting the retry position either way.
func (e *Engine) conclude(gen uint64, text string, err error) {
	e.mu.Lock()
	if gen != e.gen || e.pending == nil {
		e.mu.Unlock()
		return
	}
	deliver := e.pending.deliver
	e.pending = nil
	e.state = RetryState{}
	e.cancelTimerLocked()
	e.mu.Unlock()

	deliver(text, err)
}

func (e *Engine) cancelTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.state.TimerPending = false
}
