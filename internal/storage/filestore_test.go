package storage_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ajay-manwani/news-extraction/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPutListDelete(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir(), "https://cdn.example/podcasts/")
	require.NoError(t, err)

	url, err := store.Put("20260825T070000Z_ab12cd34.mp3", []byte("audio"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/podcasts/20260825T070000Z_ab12cd34.mp3", url)

	objects, err := store.List()
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Equal(t, int64(5), objects[0].Size)

	require.NoError(t, store.Delete(objects[0].Name))
	// a second delete of the same object is a no-op
	require.NoError(t, store.Delete(objects[0].Name))

	objects, err = store.List()
	require.NoError(t, err)
	require.Empty(t, objects)
}

func TestPutRejectsPathTraversal(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir(), "https://cdn.example")
	require.NoError(t, err)

	_, err = store.Put("../escape.mp3", []byte("x"))
	require.Error(t, err)
}

func TestObjectNamesSortChronologically(t *testing.T) {
	early := storage.ObjectName("run-aaaa-1111", time.Date(2026, 8, 25, 7, 0, 0, 0, time.UTC))
	late := storage.ObjectName("run-bbbb-2222", time.Date(2026, 8, 26, 7, 0, 0, 0, time.UTC))
	require.Less(t, early, late)
	require.Equal(t, "20260825T070000Z_run-aaaa.mp3", early)
}

func TestStats(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir(), "https://cdn.example")
	require.NoError(t, err)

	_, err = store.Put("a.mp3", []byte("12345"))
	require.NoError(t, err)
	_, err = store.Put("b.mp3", []byte("123"))
	require.NoError(t, err)

	count, size, err := store.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, int64(8), size)
}

func TestSweepRemovesOnlyExpiredAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir, "https://cdn.example")
	require.NoError(t, err)

	_, err = store.Put("old.mp3", []byte("old"))
	require.NoError(t, err)
	_, err = store.Put("new.mp3", []byte("new"))
	require.NoError(t, err)

	// age the first object past the retention window
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.mp3"), past, past))

	removed, err := storage.Sweep(store, 24*time.Hour, time.Now(), testLogger())
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	objects, err := store.List()
	require.NoError(t, err)
	require.Len(t, objects, 1)
	require.Equal(t, "new.mp3", objects[0].Name)

	removed, err = storage.Sweep(store, 24*time.Hour, time.Now(), testLogger())
	require.NoError(t, err)
	require.Zero(t, removed)
}
