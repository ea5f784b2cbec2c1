// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_clipstore

// Transcription status of a clip. StatusComplete is the empty string so a
// finished clip serializes without a status field.
const (
	StatusPending      = "pending"
	StatusTranscribing = "transcribing"
	StatusFailed       = "failed"
	StatusComplete     = ""
)

// View selectors for the two parallel text representations.
const (
	ViewRaw       = "raw"
	ViewFormatted = "formatted"
)

type Clip struct {
	ID      string `json:"id" gorm:"primaryKey;size:64"`
	Title   string `json:"title" gorm:"size:255;not null"`
	Date    string `json:"date" gorm:"size:64"`
	Status  string `json:"status" gorm:"size:20;index"`
	Content string `json:"content" gorm:"type:text"`

	// RawText and FormattedText are two renderings of the same transcription;
	// CurrentView records which one the user is looking at.
	RawText       string `json:"rawText" gorm:"type:text"`
	FormattedText string `json:"formattedText" gorm:"type:text"`
	CurrentView   string `json:"currentView" gorm:"size:20"`

	// AudioID is a non-owning reference into the audio durability store,
	// meaningful only while a transcription is outstanding.
	AudioID string `json:"audioId" gorm:"size:64"`

	CreatedAt int64 `json:"createdAt" gorm:"index"`
}
