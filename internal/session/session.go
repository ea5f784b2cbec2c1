// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"context"
	"errors"
	"sync"

	internal_enhance "github.com/clipperai/internal/enhance"
	internal_audiostore "github.com/clipperai/internal/store/audiostore"
	internal_clipstore "github.com/clipperai/internal/store/clipstore"
	internal_transcribe "github.com/clipperai/internal/transcribe"
	"github.com/clipperai/pkg/commons"
)

// Phase of the recording flow.
type Phase string

const (
	PhaseRecord     Phase = "record"
	PhaseRecording  Phase = "recording"
	PhaseProcessing Phase = "processing"
	PhaseComplete   Phase = "complete"
)

// Mode chooses between creating a fresh clip and appending to an existing one.
type Mode string

const (
	ModeNew    Mode = "new"
	ModeAppend Mode = "append"
)

var (
	ErrNotRecording  = errors.New("session: no recording in progress")
	ErrBusy          = errors.New("session: a transcription cycle is already in flight")
	ErrNoAppendClip  = errors.New("session: append target clip not found")
	ErrNoStoredAudio = errors.New("session: clip has no stored audio to retry")
)

// Recorder is the slice of the capture engine the session needs.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
	Level() float32
	Recording() bool
	Close()
}

// TranscriptionEngine is the slice of the retry engine the session needs.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, blob []byte, deliver internal_transcribe.DeliverFunc)
	ForceRetry() bool
	Cancel()
	State() internal_transcribe.RetryState
}

// Session wires capture, durability, transcription and the clip store into
// the record/recording/processing/complete flow. All state is guarded by a
// single mutex; the transcription engine reports back through a callback.
type Session struct {
	logger    commons.Logger
	recorder  Recorder
	audio     internal_audiostore.Store
	clips     internal_clipstore.Store
	engine    TranscriptionEngine
	titles    internal_enhance.TitleGenerator
	formatter *internal_enhance.Formatter

	mu           sync.Mutex
	phase        Phase
	mode         Mode
	appendClipID string
	activeClipID string
	lastErr      error
}

func New(
	logger commons.Logger,
	recorder Recorder,
	audio internal_audiostore.Store,
	clips internal_clipstore.Store,
	engine TranscriptionEngine,
	titles internal_enhance.TitleGenerator,
	formatter *internal_enhance.Formatter,
) *Session {
	return &Session{
		logger:    logger,
		recorder:  recorder,
		audio:     audio,
		clips:     clips,
		engine:    engine,
		titles:    titles,
		formatter: formatter,
		phase:     PhaseRecord,
		mode:      ModeNew,
	}
}

// Snapshot is the externally observable session state.
type Snapshot struct {
	Phase        Phase                          `json:"phase"`
	Mode         Mode                           `json:"mode"`
	ActiveClipID string                         `json:"activeClipId,omitempty"`
	LastError    string                         `json:"lastError,omitempty"`
	Retry        internal_transcribe.RetryState `json:"retry"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Phase:        s.phase,
		Mode:         s.mode,
		ActiveClipID: s.activeClipID,
		Retry:        s.engine.State(),
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// Level exposes the live capture amplitude for visualization.
func (s *Session) Level() float32 {
	return s.recorder.Level()
}

// SetAppendTarget switches to append mode aimed at an existing clip.
func (s *Session) SetAppendTarget(ctx context.Context, clipID string) error {
	if _, err := s.clips.Get(ctx, clipID); err != nil {
		if errors.Is(err, internal_clipstore.ErrNotFound) {
			return ErrNoAppendClip
		}
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeAppend
	s.appendClipID = clipID
	return nil
}

// StartRecording moves record -> recording and opens the capture source.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == PhaseProcessing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.mu.Unlock()

	if err := s.recorder.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.phase = PhaseRecording
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// StopAndTranscribe moves recording -> processing: it stops capture, persists
// the blob to the durability store, then hands the blob to the retry engine.
// Persistence strictly precedes the first network attempt; a durability
// failure is tolerated by carrying the blob in memory.
func (s *Session) StopAndTranscribe(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.phase != PhaseRecording {
		s.mu.Unlock()
		return "", ErrNotRecording
	}
	s.phase = PhaseProcessing
	mode := s.mode
	appendID := s.appendClipID
	s.mu.Unlock()

	blob, err := s.recorder.Stop()
	if err != nil {
		s.failToRecord(err)
		return "", err
	}

	clip, err := s.prepareClip(ctx, mode, appendID)
	if err != nil {
		s.failToRecord(err)
		return "", err
	}

	audioID, err := s.audio.Store(blob)
	if err != nil {
		s.logger.Warnf("session: audio persistence failed, continuing in memory: %v", err)
		audioID = ""
	}
	if audioID != "" {
		if _, err := s.clips.Update(ctx, clip.ID, map[string]interface{}{"audioId": audioID}); err != nil {
			s.logger.Warnf("session: could not attach audio id to clip %s: %v", clip.ID, err)
		}
	}

	s.beginTranscription(ctx, clip.ID, mode, blob)
	return clip.ID, nil
}

// SubmitBlob runs the processing flow for an already-captured blob, such as
// an uploaded file. The same durability-before-network ordering applies.
func (s *Session) SubmitBlob(ctx context.Context, blob []byte) (string, error) {
	s.mu.Lock()
	if s.phase == PhaseProcessing {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.phase = PhaseProcessing
	mode := s.mode
	appendID := s.appendClipID
	s.mu.Unlock()

	clip, err := s.prepareClip(ctx, mode, appendID)
	if err != nil {
		s.failToRecord(err)
		return "", err
	}

	audioID, err := s.audio.Store(blob)
	if err != nil {
		s.logger.Warnf("session: audio persistence failed, continuing in memory: %v", err)
		audioID = ""
	}
	if audioID != "" {
		if _, err := s.clips.Update(ctx, clip.ID, map[string]interface{}{"audioId": audioID}); err != nil {
			s.logger.Warnf("session: could not attach audio id to clip %s: %v", clip.ID, err)
		}
	}

	s.beginTranscription(ctx, clip.ID, mode, blob)
	return clip.ID, nil
}

// Resubmit restarts transcription for a failed clip from its stored audio.
func (s *Session) Resubmit(ctx context.Context, clipID string) error {
	s.mu.Lock()
	if s.activeClipID != "" {
		s.mu.Unlock()
		return ErrBusy
	}
	s.mu.Unlock()

	clip, err := s.clips.Get(ctx, clipID)
	if err != nil {
		return err
	}
	if clip.AudioID == "" {
		return ErrNoStoredAudio
	}
	blob, err := s.audio.Get(clip.AudioID)
	if err != nil {
		if errors.Is(err, internal_audiostore.ErrNotFound) {
			return ErrNoStoredAudio
		}
		return err
	}

	mode := ModeNew
	if clip.Content != "" {
		mode = ModeAppend
	}

	s.mu.Lock()
	s.phase = PhaseProcessing
	s.mu.Unlock()

	s.beginTranscription(ctx, clip.ID, mode, blob)
	return nil
}

// ForceRetry skips a pending backoff wait for the in-flight transcription.
func (s *Session) ForceRetry() bool {
	return s.engine.ForceRetry()
}

// NewClip abandons any in-flight work and returns to a clean record phase.
// A pending retry timer is cancelled so no stale attempt fires later.
func (s *Session) NewClip() {
	s.engine.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseRecord
	s.mode = ModeNew
	s.appendClipID = ""
	s.activeClipID = ""
	s.lastErr = nil
}

// Reset wipes both stores and returns to the initial state.
func (s *Session) Reset(ctx context.Context) error {
	s.NewClip()
	if err := s.audio.Clear(); err != nil {
		return err
	}
	return s.clips.Clear(ctx)
}

// Close releases the capture hardware. Stores are owned by the caller.
func (s *Session) Close() {
	s.engine.Cancel()
	s.recorder.Close()
}

func (s *Session) failToRecord(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseRecord
	s.lastErr = cause
}

func (s *Session) prepareClip(ctx context.Context, mode Mode, appendID string) (*internal_clipstore.Clip, error) {
	if mode == ModeAppend {
		clip, err := s.clips.Get(ctx, appendID)
		if err != nil {
			if errors.Is(err, internal_clipstore.ErrNotFound) {
				return nil, ErrNoAppendClip
			}
			return nil, err
		}
		return s.clips.Update(ctx, clip.ID, map[string]interface{}{
			"status": internal_clipstore.StatusPending,
		})
	}

	existing, err := s.clips.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.clips.Create(ctx, internal_clipstore.Clip{
		Title:  internal_clipstore.NextClipNumber(existing),
		Status: internal_clipstore.StatusPending,
	})
}

func (s *Session) beginTranscription(ctx context.Context, clipID string, mode Mode, blob []byte) {
	s.mu.Lock()
	s.activeClipID = clipID
	s.mu.Unlock()

	if _, err := s.clips.Update(ctx, clipID, map[string]interface{}{
		"status": internal_clipstore.StatusTranscribing,
	}); err != nil {
		s.logger.Warnf("session: could not mark clip %s transcribing: %v", clipID, err)
	}

	s.engine.Transcribe(ctx, blob, func(text string, err error) {
		if err != nil {
			s.onTranscriptionFailure(clipID, err)
			return
		}
		s.onTranscriptionSuccess(clipID, mode, text)
	})
}

func (s *Session) onTranscriptionFailure(clipID string, cause error) {
	ctx := context.Background()
	if _, err := s.clips.Update(ctx, clipID, map[string]interface{}{
		"status": internal_clipstore.StatusFailed,
	}); err != nil {
		s.logger.Warnf("session: could not mark clip %s failed: %v", clipID, err)
	}
	s.logger.Warnf("session: transcription for clip %s failed: %v", clipID, cause)

	s.mu.Lock()
	s.phase = PhaseRecord
	s.activeClipID = ""
	s.lastErr = cause
	s.mu.Unlock()
}

func (s *Session) onTranscriptionSuccess(clipID string, mode Mode, text string) {
	ctx := context.Background()
	clip, err := s.clips.Get(ctx, clipID)
	if err != nil {
		s.logger.Errorf("session: clip %s vanished before merge: %v", clipID, err)
		s.mu.Lock()
		s.phase = PhaseRecord
		s.activeClipID = ""
		s.lastErr = err
		s.mu.Unlock()
		return
	}

	content := text
	rawText := text
	if mode == ModeAppend && clip.Content != "" {
		content = clip.Content + "\n\n" + text
	}
	if mode == ModeAppend && clip.RawText != "" {
		rawText = clip.RawText + "\n\n" + text
	}

	formatted := rawText
	if s.formatter != nil {
		formatted = s.formatter.Format(ctx, rawText, clip.FormattedText)
	}

	updated, err := s.clips.Update(ctx, clipID, map[string]interface{}{
		"status":        internal_clipstore.StatusComplete,
		"content":       content,
		"rawText":       rawText,
		"formattedText": formatted,
	})
	if err != nil {
		s.logger.Errorf("session: could not persist transcription for clip %s: %v", clipID, err)
		s.mu.Lock()
		s.phase = PhaseRecord
		s.activeClipID = ""
		s.lastErr = err
		s.mu.Unlock()
		return
	}

	if updated.AudioID != "" {
		if err := s.audio.Delete(updated.AudioID); err != nil {
			s.logger.Warnf("session: could not delete audio record %s: %v", updated.AudioID, err)
		} else if _, err := s.clips.Update(ctx, clipID, map[string]interface{}{"audioId": ""}); err != nil {
			s.logger.Warnf("session: could not clear audio id on clip %s: %v", clipID, err)
		}
	}

	s.maybeGenerateTitle(clipID, updated.Title, rawText)

	s.mu.Lock()
	s.phase = PhaseComplete
	s.activeClipID = ""
	s.lastErr = nil
	s.mu.Unlock()
}

// maybeGenerateTitle fires a best-effort background title generation for
// clips still carrying their placeholder title. Failures are swallowed.
func (s *Session) maybeGenerateTitle(clipID, currentTitle, rawText string) {
	if s.titles == nil || !internal_clipstore.IsPlaceholderTitle(currentTitle) {
		return
	}
	go func() {
		title, err := s.titles.GenerateTitle(context.Background(), rawText)
		if err != nil {
			if !errors.Is(err, internal_enhance.ErrTitleDisabled) {
				s.logger.Warnf("session: title generation failed for clip %s: %v", clipID, err)
			}
			return
		}
		if _, err := s.clips.Update(context.Background(), clipID, map[string]interface{}{"title": title}); err != nil {
			s.logger.Warnf("session: could not store generated title for clip %s: %v", clipID, err)
		}
	}()
}
