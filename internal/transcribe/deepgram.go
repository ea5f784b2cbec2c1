// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcribe

import (
	"bytes"
	"context"
	"errors"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	"github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/clipperai/pkg/commons"
	"github.com/clipperai/pkg/utils"
)

// DeepgramTranscriber runs prerecorded transcription through Deepgram's REST
// API instead of the generic HTTP endpoint.
type DeepgramTranscriber struct {
	logger  commons.Logger
	client  *listenapi.Client
	options *interfaces.PreRecordedTranscriptionOptions
}

func NewDeepgramTranscriber(logger commons.Logger, key string, opts utils.Option) (*DeepgramTranscriber, error) {
	if utils.IsEmpty(key) {
		return nil, errors.New("transcribe: deepgram api key is required")
	}
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       "nova-2",
		Language:    "en-US",
		SmartFormat: true,
		Punctuate:   true,
	}
	if m, err := opts.GetString("listen.model"); err == nil && !utils.IsEmpty(m) {
		options.Model = m
	}
	if l, err := opts.GetString("listen.language"); err == nil && !utils.IsEmpty(l) {
		options.Language = l
	}
	if sf, err := opts.GetBool("listen.smart_format"); err == nil {
		options.SmartFormat = sf
	}
	if p, err := opts.GetBool("listen.punctuate"); err == nil {
		options.Punctuate = p
	}
	rest := listen.NewREST(key, &interfaces.ClientOptions{})
	return &DeepgramTranscriber{
		logger:  logger,
		client:  listenapi.New(rest),
		options: options,
	}, nil
}

func (t *DeepgramTranscriber) Transcribe(ctx context.Context, blob []byte) (string, error) {
	res, err := t.client.FromStream(ctx, bytes.NewReader(blob), t.options)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return "", ErrInvalidResponse
	}
	transcript := res.Results.Channels[0].Alternatives[0].Transcript
	if utils.IsEmpty(transcript) {
		return "", ErrInvalidResponse
	}
	return transcript, nil
}
