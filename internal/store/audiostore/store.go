// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audiostore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/clipperai/pkg/commons"
)

var (
	// ErrStorageUnavailable: the bolt file could not be opened. Callers keep
	// the blob in memory and proceed straight to transcription.
	ErrStorageUnavailable = errors.New("audio store unavailable")
	// ErrNotFound: no record under the given id.
	ErrNotFound = errors.New("audio record not found")
)

const bucketAudio = "audio_records" // key: id -> 8-byte unixnano prefix + blob

// AudioRecord is a captured blob held until its transcript is durably merged
// into a clip. Records are only removed by explicit Delete/Clear; a record
// whose transcription failed permanently stays put so the audio is never lost.
type AudioRecord struct {
	ID        string
	Blob      []byte
	Timestamp time.Time
}

// Store is the durability layer for raw audio. A blob must be persisted here
// before the first transcription attempt is dispatched.
type Store interface {
	// Store persists a blob under a fresh id.
	Store(blob []byte) (string, error)
	// Get returns the blob for id, ErrNotFound if absent.
	Get(id string) ([]byte, error)
	// GetRecord returns the full record including its capture timestamp.
	GetRecord(id string) (*AudioRecord, error)
	// Delete removes a record. Deleting an absent id is not an error.
	Delete(id string) error
	// Clear wipes all records. Used on session reset.
	Clear() error
	Close() error
}

type boltStore struct {
	logger  commons.Logger
	storage *bbolt.DB
	clock   func() time.Time
}

// Open opens (or creates) the bolt file at path. Returns
// ErrStorageUnavailable when the file cannot be opened or the bucket cannot
// be created.
func Open(logger commons.Logger, path string) (Store, error) {
	instance, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := instance.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketAudio))
		return err
	}); err != nil {
		_ = instance.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &boltStore{logger: logger, storage: instance, clock: time.Now}, nil
}

func (s *boltStore) Store(blob []byte) (string, error) {
	id := uuid.New().String()
	value := make([]byte, 8+len(blob))
	binary.BigEndian.PutUint64(value, uint64(s.clock().UnixNano()))
	copy(value[8:], blob)

	err := s.storage.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketAudio)).Put([]byte(id), value)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store audio record %s: %w", id, err)
	}
	s.logger.Debugf("stored audio record: id=%s, bytes=%d", id, len(blob))
	return id, nil
}

func (s *boltStore) Get(id string) ([]byte, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}
	return rec.Blob, nil
}

func (s *boltStore) GetRecord(id string) (*AudioRecord, error) {
	var rec *AudioRecord
	err := s.storage.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketAudio)).Get([]byte(id))
		if v == nil {
			return nil
		}
		blob := make([]byte, len(v)-8)
		copy(blob, v[8:])
		rec = &AudioRecord{
			ID:        id,
			Blob:      blob,
			Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(v[:8]))),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read audio record %s: %w", id, err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *boltStore) Delete(id string) error {
	err := s.storage.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketAudio)).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete audio record %s: %w", id, err)
	}
	return nil
}

func (s *boltStore) Clear() error {
	return s.storage.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketAudio)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketAudio))
		return err
	})
}

func (s *boltStore) Close() error {
	return s.storage.Close()
}
