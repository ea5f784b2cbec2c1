// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_clipstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is the degraded mode used when sqlite cannot be opened. Clips
// survive only for the lifetime of the process.
type memoryStore struct {
	mu    sync.RWMutex
	clips map[string]Clip
	clock func() time.Time
}

func NewMemoryStore() Store {
	return &memoryStore{
		clips: make(map[string]Clip),
		clock: time.Now,
	}
}

func (s *memoryStore) GetAll(ctx context.Context) ([]Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clips := make([]Clip, 0, len(s.clips))
	for _, clip := range s.clips {
		clips = append(clips, clip)
	}
	sort.Slice(clips, func(i, j int) bool {
		return clips[i].CreatedAt > clips[j].CreatedAt
	})
	return clips, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clip, ok := s.clips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &clip, nil
}

func (s *memoryStore) Create(ctx context.Context, clip Clip) (*Clip, error) {
	now := s.clock()
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	if clip.Date == "" {
		clip.Date = now.Format("Jan 2, 2006")
	}
	if clip.CurrentView == "" {
		clip.CurrentView = ViewRaw
	}
	clip.CreatedAt = now.UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[clip.ID] = clip
	return &clip, nil
}

func (s *memoryStore) Update(ctx context.Context, id string, fields map[string]interface{}) (*Clip, error) {
	if _, err := toColumns(fields); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clip, ok := s.clips[id]
	if !ok {
		return nil, ErrNotFound
	}
	for field, value := range fields {
		text, _ := value.(string)
		switch field {
		case "title":
			clip.Title = text
		case "date":
			clip.Date = text
		case "status":
			clip.Status = text
		case "content":
			clip.Content = text
		case "rawText":
			clip.RawText = text
		case "formattedText":
			clip.FormattedText = text
		case "currentView":
			clip.CurrentView = text
		case "audioId":
			clip.AudioID = text
		}
	}
	s.clips[id] = clip
	return &clip, nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clips[id]; !ok {
		return false, nil
	}
	delete(s.clips, id)
	return true, nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = make(map[string]Clip)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
