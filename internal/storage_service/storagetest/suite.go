// Package storagetest holds a conformance suite for StorageService
// implementations and an in-memory fake with failure injection.
package storagetest

import (
	"context"
	"testing"

	ss "github.com/AnishMulay/sandfile/internal/storage_service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSuite exercises the StorageService contract against fresh stores built by newStore.
func RunSuite(t *testing.T, newStore func(t *testing.T) ss.StorageService) {
	t.Helper()
	ctx := context.Background()

	t.Run("exists reports missing object", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Exists(ctx, "missing.txt")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("create empty makes zero length object", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateEmpty(ctx, "a.txt"))

		ok, err := s.Exists(ctx, "a.txt")
		require.NoError(t, err)
		assert.True(t, ok)

		data, err := s.ReadAll(ctx, "a.txt", 64)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("create empty truncates existing object", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteFull(ctx, "a.txt", []byte("old contents")))
		require.NoError(t, s.CreateEmpty(ctx, "a.txt"))

		data, err := s.ReadAll(ctx, "a.txt", 64)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("write full replaces contents", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteFull(ctx, "a.txt", []byte("a much longer first write")))
		require.NoError(t, s.WriteFull(ctx, "a.txt", []byte("short")))

		data, err := s.ReadAll(ctx, "a.txt", 1024)
		require.NoError(t, err)
		assert.Equal(t, []byte("short"), data)
	})

	t.Run("write full keeps binary data", func(t *testing.T) {
		s := newStore(t)
		payload := []byte{0x00, 0x01, 0x02, 0xFF}
		require.NoError(t, s.WriteFull(ctx, "bin", payload))

		data, err := s.ReadAll(ctx, "bin", 16)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("read all honours max bytes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.WriteFull(ctx, "a.txt", []byte("hello world")))

		data, err := s.ReadAll(ctx, "a.txt", 5)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)

		data, err = s.ReadAll(ctx, "a.txt", 0)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("read missing object fails", func(t *testing.T) {
		s := newStore(t)
		_, err := s.ReadAll(ctx, "missing.txt", 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, ss.ErrReadFailed)
		assert.ErrorIs(t, err, ss.ErrObjectNotFound)
	})

	t.Run("remove deletes object", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateEmpty(ctx, "a.txt"))
		require.NoError(t, s.Remove(ctx, "a.txt"))

		ok, err := s.Exists(ctx, "a.txt")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
