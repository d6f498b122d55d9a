package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("tasks/7/grades.csv", []byte("Student,Score\n"))
	require.NoError(t, err)
	require.Equal(t, "tasks/7/grades.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	data, err := os.ReadFile(store.Path(rel))
	require.NoError(t, err)
	require.Equal(t, "Student,Score\n", string(data))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewLocalStorage(baseDir)
	require.NoError(t, err)

	_, err = store.Save("tasks/7/old.csv", []byte("stale"))
	require.NoError(t, err)
	_, err = store.Save("tasks/7/fresh.csv", []byte("current"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(baseDir, "tasks/7/old.csv"), stale, stale))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("tasks", "7", "old.csv")}, deleted)

	_, err = store.Open("tasks/7/old.csv")
	require.Error(t, err)
	_, err = store.Open("tasks/7/fresh.csv")
	require.NoError(t, err)
}
