// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package clip_api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internal_capture "github.com/clipperai/internal/audio/capture"
	internal_session "github.com/clipperai/internal/session"
	internal_clipstore "github.com/clipperai/internal/store/clipstore"
	internal_transcribe "github.com/clipperai/internal/transcribe"
	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
	"github.com/clipperai/pkg/utils"
)

type sessionApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	session *internal_session.Session
}

func NewSessionApi(cfg *config.AppConfig, logger commons.Logger, session *internal_session.Session) *sessionApi {
	return &sessionApi{cfg: cfg, logger: logger, session: session}
}

func (api *sessionApi) State(c *gin.Context) {
	utils.Success(c, api.session.Snapshot())
}

func (api *sessionApi) Level(c *gin.Context) {
	utils.Success(c, gin.H{"level": api.session.Level()})
}

func (api *sessionApi) Start(c *gin.Context) {
	// Capture outlives the request; the HTTP context would tear it down.
	if err := api.session.StartRecording(context.Background()); err != nil {
		api.failCapture(c, err)
		return
	}
	utils.Success(c, api.session.Snapshot())
}

func (api *sessionApi) Stop(c *gin.Context) {
	clipID, err := api.session.StopAndTranscribe(context.Background())
	if err != nil {
		switch {
		case errors.Is(err, internal_session.ErrNotRecording):
			utils.Error(c, http.StatusConflict, "no recording in progress")
		case errors.Is(err, internal_session.ErrNoAppendClip):
			utils.Error(c, http.StatusNotFound, "append target clip not found")
		default:
			api.failCapture(c, err)
		}
		return
	}
	utils.Success(c, gin.H{"clipId": clipID, "session": api.session.Snapshot()})
}

func (api *sessionApi) Append(c *gin.Context) {
	err := api.session.SetAppendTarget(c.Request.Context(), c.Param("clipId"))
	if err != nil {
		if errors.Is(err, internal_session.ErrNoAppendClip) {
			utils.Error(c, http.StatusNotFound, "append target clip not found")
			return
		}
		api.logger.Errorf("session-api: setting append target failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "could not set append target")
		return
	}
	utils.Success(c, api.session.Snapshot())
}

func (api *sessionApi) NewClip(c *gin.Context) {
	api.session.NewClip()
	utils.Success(c, api.session.Snapshot())
}

func (api *sessionApi) ForceRetry(c *gin.Context) {
	skipped := api.session.ForceRetry()
	utils.Success(c, gin.H{"skippedWait": skipped, "session": api.session.Snapshot()})
}

func (api *sessionApi) Resubmit(c *gin.Context) {
	err := api.session.Resubmit(context.Background(), c.Param("clipId"))
	if err != nil {
		switch {
		case errors.Is(err, internal_clipstore.ErrNotFound):
			utils.Error(c, http.StatusNotFound, "clip not found")
		case errors.Is(err, internal_session.ErrNoStoredAudio):
			utils.Error(c, http.StatusConflict, "clip has no stored audio")
		case errors.Is(err, internal_session.ErrBusy):
			utils.Error(c, http.StatusConflict, "a transcription cycle is already in flight")
		default:
			api.logger.Errorf("session-api: resubmit failed: %v", err)
			utils.Error(c, http.StatusInternalServerError, "could not resubmit clip")
		}
		return
	}
	utils.Success(c, api.session.Snapshot())
}

func (api *sessionApi) Reset(c *gin.Context) {
	if err := api.session.Reset(c.Request.Context()); err != nil {
		api.logger.Errorf("session-api: reset failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "could not reset session")
		return
	}
	utils.Success(c, api.session.Snapshot())
}

// failCapture maps capture and transcription precondition errors onto
// client-meaningful statuses.
func (api *sessionApi) failCapture(c *gin.Context, err error) {
	switch {
	case errors.Is(err, internal_capture.ErrPermissionDenied):
		utils.Error(c, http.StatusForbidden, "microphone permission denied")
	case errors.Is(err, internal_capture.ErrDeviceNotFound):
		utils.Error(c, http.StatusServiceUnavailable, "no capture device found")
	case errors.Is(err, internal_capture.ErrDeviceBusy):
		utils.Error(c, http.StatusConflict, "capture device is busy")
	case errors.Is(err, internal_transcribe.ErrOffline):
		utils.Error(c, http.StatusServiceUnavailable, "no network connectivity")
	case errors.Is(err, internal_transcribe.ErrRecordingTooShort):
		utils.Error(c, http.StatusBadRequest, "recording too short")
	default:
		api.logger.Errorf("session-api: capture failure: %v", err)
		utils.Error(c, http.StatusInternalServerError, "recording failed")
	}
}
