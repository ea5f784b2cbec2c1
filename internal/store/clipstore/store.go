// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_clipstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clipperai/pkg/commons"
)

var (
	ErrNotFound     = errors.New("clipstore: clip not found")
	ErrInvalidField = errors.New("clipstore: field not updatable")
)

// updatableColumns is the allowlist for Update. Anything outside it is
// rejected so callers cannot rewrite identity or creation time.
var updatableColumns = map[string]string{
	"title":         "title",
	"date":          "date",
	"status":        "status",
	"content":       "content",
	"rawText":       "raw_text",
	"formattedText": "formatted_text",
	"currentView":   "current_view",
	"audioId":       "audio_id",
}

// Store keeps clip metadata. Implementations must return clips newest-first
// from GetAll and treat Update fields as a patch, not a replacement.
type Store interface {
	GetAll(ctx context.Context) ([]Clip, error)
	Get(ctx context.Context, id string) (*Clip, error)
	Create(ctx context.Context, clip Clip) (*Clip, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) (*Clip, error)
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
	Close() error
}

// Open returns a sqlite-backed store, or an in-memory store when the database
// cannot be opened. The caller always gets a usable Store; persistence is
// best-effort and degradation is logged, never fatal.
func Open(logger commons.Logger, path string) Store {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Warnf("clipstore: sqlite open failed, falling back to memory store: %v", err)
		return NewMemoryStore()
	}
	if err := db.AutoMigrate(&Clip{}); err != nil {
		logger.Warnf("clipstore: migration failed, falling back to memory store: %v", err)
		return NewMemoryStore()
	}
	return &sqliteStore{db: db, clock: time.Now}
}

type sqliteStore struct {
	db    *gorm.DB
	clock func() time.Time
}

func (s *sqliteStore) GetAll(ctx context.Context) ([]Clip, error) {
	var clips []Clip
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&clips).Error; err != nil {
		return nil, err
	}
	return clips, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*Clip, error) {
	var clip Clip
	err := s.db.WithContext(ctx).First(&clip, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &clip, nil
}

func (s *sqliteStore) Create(ctx context.Context, clip Clip) (*Clip, error) {
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
	if err := s.db.WithContext(ctx).Create(&clip).Error; err != nil {
		return nil, err
	}
	return &clip, nil
}

func (s *sqliteStore) Update(ctx context.Context, id string, fields map[string]interface{}) (*Clip, error) {
	columns, err := toColumns(fields)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		res := s.db.WithContext(ctx).Model(&Clip{}).Where("id = ?", id).Updates(columns)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.Get(ctx, id)
}

func (s *sqliteStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&Clip{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&Clip{}).Error
}

func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// toColumns validates a patch against the allowlist. Every updatable column
// is text, so non-string values are rejected up front rather than coerced
// differently by each backend.
func toColumns(fields map[string]interface{}) (map[string]interface{}, error) {
	columns := make(map[string]interface{}, len(fields))
	for field, value := range fields {
		column, ok := updatableColumns[field]
		if !ok {
			return nil, ErrInvalidField
		}
		if _, ok := value.(string); !ok {
			return nil, ErrInvalidField
		}
		columns[column] = value
	}
	return columns, nil
}
