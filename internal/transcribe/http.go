// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
)

// HTTPTranscriber posts audio as multipart form data to a speech-to-text
// endpoint and expects {"success": true, "transcription": "..."} back.
type HTTPTranscriber struct {
	logger   commons.Logger
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPTranscriber(logger commons.Logger, cfg config.TranscriberConfig) *HTTPTranscriber {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTranscriber{
		logger:   logger,
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		client:   &http.Client{Timeout: timeout},
	}
}

type transcriptionResponse struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
	Message       string `json:"message"`
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, blob []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(blob); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ServerError{
			Status:  resp.StatusCode,
			Message: serverMessage(raw),
		}
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.logger.Warnf("transcriber: undecodable response body: %v", err)
		return "", ErrInvalidResponse
	}
	if !parsed.Success || strings.TrimSpace(parsed.Transcription) == "" {
		return "", ErrInvalidResponse
	}
	return parsed.Transcription, nil
}

// serverMessage pulls a human message out of an error body, falling back to
// the raw text when it is not the usual JSON envelope.
func serverMessage(raw []byte) string {
	var parsed transcriptionResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "transcription request failed"
	}
	return msg
}
