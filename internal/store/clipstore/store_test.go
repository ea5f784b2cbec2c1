package internal_clipstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipperai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("clipstore-test"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
		commons.Console(false),
	)
	require.NoError(t, err)
	return logger
}

func openTestStore(t *testing.T) Store {
	t.Helper()
	store := Open(newTestLogger(t), filepath.Join(t.TempDir(), "clips.db"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Clip{Title: "Clip 001", Content: "hello", Status: StatusComplete})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Date)
	assert.Equal(t, ViewRaw, created.CurrentView)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "no-such-clip")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAllNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sqlStore, ok := store.(*sqliteStore)
	require.True(t, ok)

	now := time.Now()
	for i, title := range []string{"Clip 001", "Clip 002", "Clip 003"} {
		tick := now.Add(time.Duration(i) * time.Second)
		sqlStore.clock = func() time.Time { return tick }
		_, err := store.Create(ctx, Clip{Title: title})
		require.NoError(t, err)
	}

	clips, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, clips, 3)
	assert.Equal(t, "Clip 003", clips[0].Title)
	assert.Equal(t, "Clip 001", clips[2].Title)
}

func TestUpdatePatchesFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Clip{Title: "Clip 001", Status: StatusPending})
	require.NoError(t, err)

	updated, err := store.Update(ctx, created.ID, map[string]interface{}{
		"status":  StatusTranscribing,
		"content": "partial",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusTranscribing, updated.Status)
	assert.Equal(t, "partial", updated.Content)
	assert.Equal(t, "Clip 001", updated.Title)
}

func TestUpdateRejectsUnknownField(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Clip{Title: "Clip 001"})
	require.NoError(t, err)

	_, err = store.Update(ctx, created.ID, map[string]interface{}{"createdAt": int64(0)})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestUpdateRejectsNonStringValue(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]Store{
		"sqlite": openTestStore(t),
		"memory": NewMemoryStore(),
	} {
		created, err := store.Create(ctx, Clip{Title: "Clip 001"})
		require.NoError(t, err, name)

		_, err = store.Update(ctx, created.ID, map[string]interface{}{"title": 123})
		assert.ErrorIs(t, err, ErrInvalidField, name)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err, name)
		assert.Equal(t, "Clip 001", got.Title, name)
	}
}

func TestUpdateMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Update(context.Background(), "no-such-clip", map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Clip{Title: "Clip 001"})
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"Clip 001", "Clip 002"} {
		_, err := store.Create(ctx, Clip{Title: title})
		require.NoError(t, err)
	}
	require.NoError(t, store.Clear(ctx))

	clips, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, clips)
}

func TestOpenFallsBackToMemory(t *testing.T) {
	store := Open(newTestLogger(t), filepath.Join(t.TempDir(), "missing", "nested", "clips.db"))
	defer func() { _ = store.Close() }()

	_, ok := store.(*memoryStore)
	assert.True(t, ok)

	created, err := store.Create(context.Background(), Clip{Title: "Clip 001"})
	require.NoError(t, err)
	got, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Clip 001", got.Title)
}

func TestMemoryStoreMatchesContract(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	mem, ok := store.(*memoryStore)
	require.True(t, ok)

	now := time.Now()
	for i, title := range []string{"Clip 001", "Clip 002"} {
		tick := now.Add(time.Duration(i) * time.Second)
		mem.clock = func() time.Time { return tick }
		_, err := store.Create(ctx, Clip{Title: title})
		require.NoError(t, err)
	}

	clips, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, "Clip 002", clips[0].Title)

	updated, err := store.Update(ctx, clips[0].ID, map[string]interface{}{"status": StatusFailed})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, updated.Status)

	_, err = store.Update(ctx, clips[0].ID, map[string]interface{}{"id": "nope"})
	assert.ErrorIs(t, err, ErrInvalidField)

	deleted, err := store.Delete(ctx, clips[1].ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestNextClipNumber(t *testing.T) {
	tests := []struct {
		name   string
		titles []string
		want   string
	}{
		{"empty", nil, "Clip 001"},
		{"sequential", []string{"Clip 001", "Clip 002"}, "Clip 003"},
		{"gap reuses after highest", []string{"Clip 001", "Clip 005"}, "Clip 006"},
		{"custom titles ignored", []string{"Groceries", "Clip 002", "Clip notes"}, "Clip 003"},
		{"all custom", []string{"Meeting", "Ideas"}, "Clip 001"},
		{"unpadded numbers counted", []string{"Clip 12"}, "Clip 013"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clips := make([]Clip, 0, len(tt.titles))
			for _, title := range tt.titles {
				clips = append(clips, Clip{Title: title})
			}
			assert.Equal(t, tt.want, NextClipNumber(clips))
		})
	}
}
