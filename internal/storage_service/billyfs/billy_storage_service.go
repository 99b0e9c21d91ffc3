package billyfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/AnishMulay/sandfile/internal/log_service"
	ss "github.com/AnishMulay/sandfile/internal/storage_service"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// BillyStorageService stores each file as one object in a go-billy filesystem.
type BillyStorageService struct {
	bfs  billy.Filesystem
	kind string
	ls   log_service.LogService
}

// NewLocalStorageService roots the store at baseDir on the local disk.
func NewLocalStorageService(baseDir string, ls log_service.LogService) (*BillyStorageService, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return NewBillyStorageService(osfs.New(baseDir), "local", ls), nil
}

func NewMemoryStorageService(ls log_service.LogService) *BillyStorageService {
	return NewBillyStorageService(memfs.New(), "memory", ls)
}

func NewBillyStorageService(bfs billy.Filesystem, kind string, ls log_service.LogService) *BillyStorageService {
	return &BillyStorageService{bfs: bfs, kind: kind, ls: ls}
}

// Unwrap exposes the underlying filesystem.
func (s *BillyStorageService) Unwrap() billy.Filesystem {
	return s.bfs
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}

func wrap(op error, name string, err error) error {
	if isNotExist(err) {
		return fmt.Errorf("%w: %s: %w", op, name, ss.ErrObjectNotFound)
	}
	return fmt.Errorf("%w: %s: %w", op, name, err)
}

func (s *BillyStorageService) fail(msg, name string, err error) {
	s.ls.Error(log_service.LogEvent{
		Message:  msg,
		Metadata: map[string]any{"backend": s.kind, "name": name, "error": err.Error()},
	})
}

func (s *BillyStorageService) Exists(_ context.Context, name string) (bool, error) {
	_, err := s.bfs.Stat(name)
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	s.fail("Failed to stat object", name, err)
	return false, fmt.Errorf("%w: %s: %w", ss.ErrStatFailed, name, err)
}

func (s *BillyStorageService) CreateEmpty(_ context.Context, name string) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Creating empty object",
		Metadata: map[string]any{"backend": s.kind, "name": name},
	})

	f, err := s.bfs.Create(name)
	if err != nil {
		s.fail("Failed to create object", name, err)
		return wrap(ss.ErrCreateFailed, name, err)
	}
	if err := f.Close(); err != nil {
		s.fail("Failed to close created object", name, err)
		return wrap(ss.ErrCreateFailed, name, err)
	}
	return nil
}

func (s *BillyStorageService) WriteFull(_ context.Context, name string, data []byte) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Writing object",
		Metadata: map[string]any{"backend": s.kind, "name": name, "size": len(data)},
	})

	f, err := s.bfs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		s.fail("Failed to open object for writing", name, err)
		return wrap(ss.ErrWriteFailed, name, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		s.fail("Failed to write object", name, err)
		return wrap(ss.ErrWriteFailed, name, err)
	}
	if err := f.Close(); err != nil {
		s.fail("Failed to flush object", name, err)
		return wrap(ss.ErrWriteFailed, name, err)
	}
	return nil
}

func (s *BillyStorageService) ReadAll(_ context.Context, name string, maxBytes int) ([]byte, error) {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Reading object",
		Metadata: map[string]any{"backend": s.kind, "name": name, "maxBytes": maxBytes},
	})

	f, err := s.bfs.Open(name)
	if err != nil {
		s.fail("Failed to open object for reading", name, err)
		return nil, wrap(ss.ErrReadFailed, name, err)
	}
	defer func() { _ = f.Close() }()

	if maxBytes <= 0 {
		return []byte{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)))
	if err != nil {
		s.fail("Failed to read object", name, err)
		return nil, wrap(ss.ErrReadFailed, name, err)
	}
	return data, nil
}

func (s *BillyStorageService) Remove(_ context.Context, name string) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Removing object",
		Metadata: map[string]any{"backend": s.kind, "name": name},
	})

	if err := s.bfs.Remove(name); err != nil {
		s.fail("Failed to remove object", name, err)
		return wrap(ss.ErrRemoveFailed, name, err)
	}
	return nil
}

var _ ss.StorageService = (*BillyStorageService)(nil)
