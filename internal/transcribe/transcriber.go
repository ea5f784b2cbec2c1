// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcribe

import (
	"context"
	"fmt"

	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
	"github.com/clipperai/pkg/utils"
)

// Transcriber turns a recorded audio blob into text. Implementations return
// definitive errors per the taxonomy in errors.go; anything network-shaped
// is treated as transient by the retry engine.
type Transcriber interface {
	Transcribe(ctx context.Context, blob []byte) (string, error)
}

// NewTranscriber builds the configured provider.
func NewTranscriber(logger commons.Logger, cfg config.TranscriberConfig) (Transcriber, error) {
	switch cfg.Provider {
	case "http":
		return NewHTTPTranscriber(logger, cfg), nil
	case "deepgram":
		opts := utils.Option{}
		if cfg.Model != "" {
			opts["listen.model"] = cfg.Model
		}
		if cfg.Language != "" {
			opts["listen.language"] = cfg.Language
		}
		return NewDeepgramTranscriber(logger, cfg.DeepgramKey, opts)
	default:
		return nil, fmt.Errorf("transcribe: unknown provider %q", cfg.Provider)
	}
}
