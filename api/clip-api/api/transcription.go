// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package clip_api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	internal_session "github.com/clipperai/internal/session"
	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
	"github.com/clipperai/pkg/utils"
)

// maxUploadBytes caps direct audio uploads at 32 MiB.
const maxUploadBytes = 32 << 20

type transcriptionApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	session *internal_session.Session
	engine  internal_session.TranscriptionEngine
}

func NewTranscriptionApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	session *internal_session.Session,
	engine internal_session.TranscriptionEngine,
) *transcriptionApi {
	return &transcriptionApi{cfg: cfg, logger: logger, session: session, engine: engine}
}

// Submit accepts a multipart audio upload and runs it through the same
// durability-then-transcription flow as a live recording.
func (api *transcriptionApi) Submit(c *gin.Context) {
	file, _, err := c.Request.FormFile("audio")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		api.logger.Errorf("transcription-api: reading upload failed: %v", err)
		utils.Error(c, http.StatusBadRequest, "unreadable audio file")
		return
	}

	// The transcription cycle outlives the request; the HTTP context would
	// cancel every retry attempt the moment the response is written.
	clipID, err := api.session.SubmitBlob(context.Background(), blob)
	if err != nil {
		if errors.Is(err, internal_session.ErrBusy) {
			utils.Error(c, http.StatusConflict, "a transcription cycle is already in flight")
			return
		}
		api.logger.Errorf("transcription-api: submit failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "could not submit audio")
		return
	}
	utils.Created(c, gin.H{"clipId": clipID})
}

// RetryState exposes the retry engine position for polling clients.
func (api *transcriptionApi) RetryState(c *gin.Context) {
	utils.Success(c, api.engine.State())
}
