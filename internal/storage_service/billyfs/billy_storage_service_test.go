package billyfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AnishMulay/sandfile/internal/log_service"
	ss "github.com/AnishMulay/sandfile/internal/storage_service"
	"github.com/AnishMulay/sandfile/internal/storage_service/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageService_Contract(t *testing.T) {
	storagetest.RunSuite(t, func(t *testing.T) ss.StorageService {
		return NewMemoryStorageService(log_service.NewNopLogService())
	})
}

func TestLocalStorageService_Contract(t *testing.T) {
	storagetest.RunSuite(t, func(t *testing.T) ss.StorageService {
		s, err := NewLocalStorageService(t.TempDir(), log_service.NewNopLogService())
		require.NoError(t, err)
		return s
	})
}

func TestLocalStorageService_WritesUnderBaseDir(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorageService(dir, log_service.NewNopLogService())
	require.NoError(t, err)

	require.NoError(t, s.WriteFull(context.Background(), "notes.txt", []byte("abc")))

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)
}

func TestLocalStorageService_DiscoversExternalFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "external.txt"), []byte("from outside"), 0644))

	s, err := NewLocalStorageService(dir, log_service.NewNopLogService())
	require.NoError(t, err)

	ok, err := s.Exists(context.Background(), "external.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStorageService_RemoveMissing(t *testing.T) {
	s, err := NewLocalStorageService(t.TempDir(), log_service.NewNopLogService())
	require.NoError(t, err)

	err = s.Remove(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, ss.ErrRemoveFailed)
	assert.ErrorIs(t, err, ss.ErrObjectNotFound)
}
