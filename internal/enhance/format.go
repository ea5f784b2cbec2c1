// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_enhance

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
)

// wordDropLimit is the share of the raw word count the formatter may lose
// before the result is considered censored and discarded.
const wordDropLimit = 0.10

// Formatter asks a remote endpoint to clean up raw transcription text.
// It never fails: any transport error, unsuccessful response or suspicious
// word loss falls back to the raw text.
type Formatter struct {
	logger  commons.Logger
	client  *resty.Client
	enabled bool
}

type formatRequest struct {
	RawText                  string `json:"rawText"`
	ExistingFormattedContext string `json:"existingFormattedContext,omitempty"`
}

type formatResponse struct {
	FormattedText string `json:"formattedText"`
	Success       bool   `json:"success"`
}

func NewFormatter(logger commons.Logger, cfg config.EnhanceConfig) *Formatter {
	timeout := time.Duration(cfg.FormatTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Formatter{
		logger:  logger,
		enabled: cfg.FormatEndpoint != "",
		client: resty.New().
			SetBaseURL(cfg.FormatEndpoint).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Format returns the cleaned-up text, or rawText when formatting is
// disabled, fails, or drops more than a tenth of the original words.
func (f *Formatter) Format(ctx context.Context, rawText, existingContext string) string {
	if !f.enabled || strings.TrimSpace(rawText) == "" {
		return rawText
	}

	var parsed formatResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(formatRequest{RawText: rawText, ExistingFormattedContext: existingContext}).
		SetResult(&parsed).
		Post("")
	if err != nil {
		f.logger.Warnf("enhance: formatting request failed, keeping raw text: %v", err)
		return rawText
	}
	if !resp.IsSuccess() || !parsed.Success || strings.TrimSpace(parsed.FormattedText) == "" {
		f.logger.Warnf("enhance: formatting unsuccessful (status %d), keeping raw text", resp.StatusCode())
		return rawText
	}
	if droppedTooManyWords(rawText, parsed.FormattedText) {
		f.logger.Warnf("enhance: formatted text lost too many words, keeping raw text")
		return rawText
	}
	return parsed.FormattedText
}

func droppedTooManyWords(rawText, formattedText string) bool {
	rawWords := len(strings.Fields(rawText))
	if rawWords == 0 {
		return false
	}
	formattedWords := len(strings.Fields(formattedText))
	return float64(formattedWords) < float64(rawWords)*(1-wordDropLimit)
}
