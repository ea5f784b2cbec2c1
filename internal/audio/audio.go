// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

// AudioFormat identifies the PCM encoding of captured audio.
type AudioFormat int

const (
	Linear16 AudioFormat = iota
	MuLaw8
)

// AudioConfig describes the capture format shared by the capture engine and
// the transcription clients.
type AudioConfig struct {
	Format     AudioFormat
	SampleRate uint32
	Channels   uint16
}

func (c *AudioConfig) GetSampleRate() uint32 {
	return c.SampleRate
}

func (c *AudioConfig) GetChannels() uint16 {
	return c.Channels
}

// CLIPPER_INTERNAL_AUDIO_CONFIG is the fixed capture format: LINEAR16 mono at
// 16kHz, the format every supported speech-to-text backend accepts natively.
var CLIPPER_INTERNAL_AUDIO_CONFIG = AudioConfig{
	Format:     Linear16,
	SampleRate: 16000,
	Channels:   1,
}
