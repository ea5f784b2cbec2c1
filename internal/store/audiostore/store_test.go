// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audiostore

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/clipperai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-audiostore"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
		commons.Console(false),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(newTestLogger(t), filepath.Join(t.TempDir(), "audio.bbolt"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	blob := []byte("RIFF....WAVEdata")

	id, err := store.Store(blob)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("blob mismatch: got %q", got)
	}

	rec, err := store.GetRecord(id)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.Timestamp.IsZero() {
		t.Error("expected capture timestamp")
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.Store([]byte("audio"))

	if err := store.Delete(id); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := store.Delete(id); err != nil {
		t.Fatalf("second Delete must not error: %v", err)
	}
	if _, err := store.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	a, _ := store.Store([]byte("one"))
	b, _ := store.Store([]byte("two"))

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	for _, id := range []string{a, b} {
		if _, err := store.Get(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("record %s survived Clear", id)
		}
	}

	// store remains usable after reset
	if _, err := store.Store([]byte("three")); err != nil {
		t.Fatalf("Store after Clear: %v", err)
	}
}

func TestOpenUnavailablePath(t *testing.T) {
	_, err := Open(newTestLogger(t), filepath.Join(t.TempDir(), "missing", "nested", "audio.bbolt"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
