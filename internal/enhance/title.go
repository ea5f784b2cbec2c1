// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_enhance

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/clipperai/config"
	"github.com/clipperai/pkg/commons"
)

// ErrTitleDisabled is returned when no API key is configured. Callers treat
// title generation as best-effort, so this only ever downgrades to the
// placeholder title.
var ErrTitleDisabled = errors.New("enhance: title generation disabled")

// maxTitleInput bounds how much of the transcription is sent for titling.
const maxTitleInput = 500

const titleSystemPrompt = "You generate short titles for voice notes. " +
	"Reply with only the title, at most five words, no quotes, no punctuation at the end."

type TitleGenerator interface {
	GenerateTitle(ctx context.Context, transcription string) (string, error)
}

type openaiTitleGenerator struct {
	logger commons.Logger
	client openai.Client
	model  string
}

type disabledTitleGenerator struct{}

func (disabledTitleGenerator) GenerateTitle(ctx context.Context, transcription string) (string, error) {
	return "", ErrTitleDisabled
}

// NewTitleGenerator builds an OpenAI-backed generator, or a disabled one
// when no key is configured. extraOpts exists for tests to point the client
// at a fake server.
func NewTitleGenerator(logger commons.Logger, cfg config.EnhanceConfig, extraOpts ...option.RequestOption) TitleGenerator {
	if cfg.OpenAIKey == "" {
		return disabledTitleGenerator{}
	}
	opts := append([]option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}, extraOpts...)
	model := cfg.TitleModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openaiTitleGenerator{
		logger: logger,
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *openaiTitleGenerator) GenerateTitle(ctx context.Context, transcription string) (string, error) {
	input := strings.TrimSpace(transcription)
	if input == "" {
		return "", errors.New("enhance: empty transcription")
	}
	if len(input) > maxTitleInput {
		input = input[:maxTitleInput]
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(titleSystemPrompt),
			openai.UserMessage(input),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("enhance: no completion choices")
	}
	title := sanitizeTitle(completion.Choices[0].Message.Content)
	if title == "" {
		return "", errors.New("enhance: empty title")
	}
	return title, nil
}

func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	return strings.TrimSpace(title)
}
