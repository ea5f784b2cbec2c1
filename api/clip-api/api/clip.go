// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package clip_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internal_clipstore "github.com/clipperai/internal/store/clipstore"
	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
	"github.com/clipperai/pkg/utils"
)

type clipApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	clips  internal_clipstore.Store
}

func NewClipApi(cfg *config.AppConfig, logger commons.Logger, clips internal_clipstore.Store) *clipApi {
	return &clipApi{cfg: cfg, logger: logger, clips: clips}
}

func (api *clipApi) GetAll(c *gin.Context) {
	clips, err := api.clips.GetAll(c.Request.Context())
	if err != nil {
		api.logger.Errorf("clip-api: listing clips failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "could not list clips")
		return
	}
	utils.Success(c, clips)
}

func (api *clipApi) Get(c *gin.Context) {
	clip, err := api.clips.Get(c.Request.Context(), c.Param("clipId"))
	if err != nil {
		if errors.Is(err, internal_clipstore.ErrNotFound) {
			utils.Error(c, http.StatusNotFound, "clip not found")
			return
		}
		api.logger.Errorf("clip-api: fetching clip failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "could not fetch clip")
		return
	}
	utils.Success(c, clip)
}

type createClipRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	RawText string `json:"rawText"`
}

func (api *clipApi) Create(c *gin.Context) {
	var req createClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid clip payload")
		return
	}

	ctx := c.Request.Context()
	title := req.Title
	if title == "" {
		existing, err := api.clips.GetAll(ctx)
		if err != nil {
			api.logger.Errorf("clip-api: listing clips for numbering failed: %v", err)
			utils.Error(c, http.StatusInternalServerError, "could not create clip")
			return
		}
		title = internal_clipstore.NextClipNumber(existing)
	}

	clip, err := api.clips.Create(ctx, internal_clipstore.Clip{
		Title:   title,
		Content: req.Content,
		RawText: req.RawText,
	})
	if err != nil {
		api.logger.Errorf("clip-api: creating clip failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "could not create clip")
		return
	}
	utils.Created(c, clip)
}

func (api *clipApi) Update(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid update payload")
		return
	}

	clip, err := api.clips.Update(c.Request.Context(), c.Param("clipId"), fields)
	if err != nil {
		switch {
		case errors.Is(err, internal_clipstore.ErrNotFound):
			utils.Error(c, http.StatusNotFound, "clip not found")
		case errors.Is(err, internal_clipstore.ErrInvalidField):
			utils.Error(c, http.StatusBadRequest, "field not updatable")
		default:
			api.logger.Errorf("clip-api: updating clip failed: %v", err)
			utils.Error(c, http.StatusInternalServerError, "could not update clip")
		}
		return
	}
	utils.Success(c, clip)
}

func (api *clipApi) Delete(c *gin.Context) {
	deleted, err := api.clips.Delete(c.Request.Context(), c.Param("clipId"))
	if err != nil {
		api.logger.Errorf("clip-api: deleting clip failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "could not delete clip")
		return
	}
	if !deleted {
		utils.Error(c, http.StatusNotFound, "clip not found")
		return
	}
	utils.Success(c, gin.H{"deleted": true})
}
