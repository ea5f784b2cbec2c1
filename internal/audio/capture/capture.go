// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	internal_audio "github.com/clipperai/internal/audio"
	"github.com/clipperai/pkg/commons"
	"github.com/clipperai/pkg/utils"
)

// Capture failures are reported once and never retried here; the caller
// decides whether to re-prompt.
var (
	// ErrPermissionDenied: the environment refused microphone access.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")
	// ErrDeviceNotFound: no capture device is present.
	ErrDeviceNotFound = errors.New("capture: no capture device found")
	// ErrDeviceBusy: another process holds the capture device.
	ErrDeviceBusy = errors.New("capture: capture device busy")
	// ErrInsecureContext: the hosting environment gates capture behind a
	// secure transport context and this process is outside one. Sources
	// bridging a browser or sandboxed host return it from Open; the local
	// ALSA source never does.
	ErrInsecureContext = errors.New("capture: insecure context")
	// ErrNotRecording: Stop was called with no active session.
	ErrNotRecording = errors.New("capture: not recording")
)

// Source abstracts the OS microphone. Open acquires exclusive access to the
// device and must return one of the capture sentinel errors on refusal. Read
// delivers LINEAR16 PCM frames. Close releases the device and unblocks any
// pending Read.
type Source interface {
	Open(ctx context.Context) error
	Read(p []byte) (int, error)
	Close() error
}

// levelWindow is how many recent PCM chunks feed the amplitude meter.
const levelWindow = 16

var audioConfig = internal_audio.CLIPPER_INTERNAL_AUDIO_CONFIG

type session struct {
	source Source
	done   chan struct{}

	mu     sync.Mutex
	pcm    []byte
	levels []float32
	err    error
}

// Engine owns at most one live capture session. Starting a new session tears
// the previous one down first so the device handle never leaks.
type Engine struct {
	logger  commons.Logger
	newSrc  func() Source
	mu      sync.Mutex
	current *session
	clock   func() time.Time
}

func NewEngine(logger commons.Logger, newSource func() Source) *Engine {
	return &Engine{
		logger: logger,
		newSrc: newSource,
		clock:  time.Now,
	}
}

// Start acquires the microphone and begins buffering audio. Any session that
// is still active is torn down and its buffered audio discarded.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		e.logger.Warn("capture: discarding previous session before start")
		e.teardownLocked()
	}

	src := e.newSrc()
	if err := src.Open(ctx); err != nil {
		return err
	}

	s := &session{
		source: src,
		done:   make(chan struct{}),
	}
	e.current = s
	go s.drain()
	e.logger.Debugf("capture: session started at %s", e.clock().Format(time.RFC3339))
	return nil
}

// drain pulls PCM from the source until it is closed, accumulating the buffer
// and the amplitude window.
func (s *session) drain() {
	defer close(s.done)
	buf := make([]byte, 3200) // 100ms of LINEAR16 mono @16kHz
	for {
		n, err := s.source.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.mu.Lock()
			s.pcm = append(s.pcm, chunk...)
			s.levels = append(s.levels, rms(chunk))
			if len(s.levels) > levelWindow {
				s.levels = s.levels[len(s.levels)-levelWindow:]
			}
			s.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}
	}
}

// rms computes the normalized root-mean-square amplitude of a LINEAR16 chunk.
func rms(chunk []byte) float32 {
	samples := len(chunk) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(chunk); i += 2 {
		v := float64(int16(uint16(chunk[i]) | uint16(chunk[i+1])<<8))
		sum += v * v
	}
	return float32(math.Sqrt(sum/float64(samples)) / 32768.0)
}

// Level returns the current amplitude for visualization, 0..1. Returns 0 when
// no session is active.
func (e *Engine) Level() float32 {
	e.mu.Lock()
	s := e.current
	e.mu.Unlock()
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.levels) == 0 {
		return 0
	}
	return utils.AverageFloat32(s.levels)
}

// Recording reports whether a capture session is active.
func (e *Engine) Recording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Stop finalizes the buffered audio into an immutable WAV blob and releases
// the microphone. The caller must hand the blob to the durability store
// before invoking transcription.
func (e *Engine) Stop() ([]byte, error) {
	e.mu.Lock()
	s := e.current
	e.current = nil
	e.mu.Unlock()

	if s == nil {
		return nil, ErrNotRecording
	}

	_ = s.source.Close()
	<-s.done

	s.mu.Lock()
	pcm := s.pcm
	readErr := s.err
	s.mu.Unlock()

	if readErr != nil && len(pcm) == 0 {
		return nil, readErr
	}
	if readErr != nil {
		e.logger.Warnf("capture: source read ended with error, keeping %d bytes: %v", len(pcm), readErr)
	}
	return createWAVFile(pcm), nil
}

// Close releases any active session without producing a blob. Used on
// abnormal teardown.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
}

func (e *Engine) teardownLocked() {
	if e.current == nil {
		return
	}
	_ = e.current.source.Close()
	<-e.current.done
	e.current = nil
}
