package single

import (
	"context"
	"fmt"
	"sync"
	"time"

	et "github.com/AnishMulay/sandfile/internal/entry_table"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
	"github.com/AnishMulay/sandfile/internal/log_service"
	ss "github.com/AnishMulay/sandfile/internal/storage_service"
)

type Options struct {
	MaxFiles      int
	MaxNameLength int
}

// SingleHandleFileService lets at most one tracked file be open at a time.
// mu is held for the whole of every operation, backend I/O included, so the
// lookup, the storage side effect and the table update are one step.
type SingleHandleFileService struct {
	mu      sync.Mutex
	table   *et.EntryTable
	// open is the token handed to the caller; openIdx is where its entry
	// sits now, which moves left when an earlier entry is deleted.
	open    *fs.Handle
	openIdx int
	epoch   uint64
	maxName int
	closed  bool

	ss ss.StorageService
	ls log_service.LogService
}

func NewSingleHandleFileService(storage ss.StorageService, ls log_service.LogService, opts Options) *SingleHandleFileService {
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = et.DefaultMaxNameLength
	}
	return &SingleHandleFileService{
		table:   et.New(opts.MaxFiles),
		maxName: opts.MaxNameLength,
		ss:      storage,
		ls:      ls,
	}
}

func (s *SingleHandleFileService) warn(msg string, meta map[string]any, err error) {
	meta["error"] = err.Error()
	s.ls.Warn(log_service.LogEvent{Message: msg, Metadata: meta})
}

// Create tracks a new empty file. A full table is refused before storage is
// touched, so unlike a create-then-check order no orphaned empty object is
// left behind.
func (s *SingleHandleFileService) Create(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ls.Info(log_service.LogEvent{Message: "Creating file", Metadata: map[string]any{"name": name}})

	if s.closed {
		return fs.ErrShutdown
	}
	if err := et.ValidateName(name, s.maxName); err != nil {
		s.warn("Rejected file name", map[string]any{"name": name}, err)
		return err
	}
	if _, ok := s.table.Find(name); ok {
		err := fmt.Errorf("%w: %s", fs.ErrAlreadyTracked, name)
		s.warn("File already tracked", map[string]any{"name": name}, err)
		return err
	}
	// Refuse before touching storage so a full table never leaves an
	// untracked empty object behind.
	if s.table.Full() {
		s.warn("File table full", map[string]any{"name": name, "capacity": s.table.Cap()}, fs.ErrCapacityExceeded)
		return fs.ErrCapacityExceeded
	}

	if err := s.ss.CreateEmpty(ctx, name); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to create file in storage",
			Metadata: map[string]any{"name": name, "error": err.Error()},
		})
		return fs.NewBackendError("create", name, err)
	}

	idx, err := s.table.Insert(et.NewFileEntry(name))
	if err != nil {
		return err
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File created successfully",
		Metadata: map[string]any{"name": name, "index": idx},
	})
	return nil
}

func (s *SingleHandleFileService) Open(ctx context.Context, name string) (fs.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ls.Info(log_service.LogEvent{Message: "Opening file", Metadata: map[string]any{"name": name}})

	if s.closed {
		return fs.NoHandle, fs.ErrShutdown
	}
	if s.open != nil {
		err := fmt.Errorf("%w: close handle %s first", fs.ErrAlreadyOpen, s.open)
		s.warn("Another file is already open", map[string]any{"name": name}, err)
		return fs.NoHandle, err
	}
	if err := et.ValidateName(name, s.maxName); err != nil {
		s.warn("Rejected file name", map[string]any{"name": name}, err)
		return fs.NoHandle, err
	}

	exists, err := s.ss.Exists(ctx, name)
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to probe storage",
			Metadata: map[string]any{"name": name, "error": err.Error()},
		})
		return fs.NoHandle, fs.NewBackendError("exists", name, err)
	}
	if !exists {
		err := fmt.Errorf("%w: %s", fs.ErrNotFound, name)
		s.warn("File does not exist in storage", map[string]any{"name": name}, err)
		return fs.NoHandle, err
	}

	idx, tracked := s.table.Find(name)
	if tracked {
		entry, err := s.table.Get(idx)
		if err != nil {
			return fs.NoHandle, err
		}
		if entry.IsOpen {
			err := fmt.Errorf("%w: %s", fs.ErrAlreadyOpen, name)
			s.warn("File is already open", map[string]any{"name": name}, err)
			return fs.NoHandle, err
		}
		entry.IsOpen = true
	} else {
		entry := et.NewFileEntry(name)
		entry.IsOpen = true
		idx, err = s.table.Insert(entry)
		if err != nil {
			s.warn("Cannot track discovered file", map[string]any{"name": name}, err)
			return fs.NoHandle, err
		}
		s.ls.Info(log_service.LogEvent{
			Message:  "File found in storage and added to the table",
			Metadata: map[string]any{"name": name, "index": idx},
		})
	}

	s.epoch++
	h := fs.Handle{Index: idx, Epoch: s.epoch}
	s.open = &h
	s.openIdx = idx

	s.ls.Info(log_service.LogEvent{
		Message:  "File opened successfully",
		Metadata: map[string]any{"name": name, "handle": h.String()},
	})
	return h, nil
}

// entryFor resolves h to its entry if and only if h is the open handle.
func (s *SingleHandleFileService) entryFor(h fs.Handle) (*et.FileEntry, error) {
	if s.closed {
		return nil, fs.ErrShutdown
	}
	if s.open == nil || *s.open != h {
		return nil, fmt.Errorf("%w: %s", fs.ErrInvalidHandle, h)
	}
	entry, err := s.table.Get(s.openIdx)
	if err != nil || !entry.IsOpen {
		return nil, fmt.Errorf("%w: %s", fs.ErrInvalidHandle, h)
	}
	return entry, nil
}

func (s *SingleHandleFileService) Write(ctx context.Context, h fs.Handle, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entryFor(h)
	if err != nil {
		s.warn("Write rejected", map[string]any{"handle": h.String()}, err)
		return err
	}
	name := entry.Name

	s.ls.Info(log_service.LogEvent{
		Message:  "Writing file",
		Metadata: map[string]any{"name": name, "size": len(data)},
	})

	if err := s.ss.WriteFull(ctx, name, data); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to write file to storage",
			Metadata: map[string]any{"name": name, "error": err.Error()},
		})
		return fs.NewBackendError("write", name, err)
	}

	entry.Size = int64(len(data))
	entry.ModifiedAt = time.Now()

	s.ls.Info(log_service.LogEvent{
		Message:  "Data written to file successfully",
		Metadata: map[string]any{"name": name, "size": entry.Size},
	})
	return nil
}

func (s *SingleHandleFileService) Read(ctx context.Context, h fs.Handle, bufferCapacity int) ([]byte, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entryFor(h)
	if err != nil {
		s.warn("Read rejected", map[string]any{"handle": h.String()}, err)
		return nil, 0, err
	}
	name := entry.Name

	// One slot is reserved for a terminator, as callers size buffers that way.
	limit := bufferCapacity - 1
	if limit < 0 {
		limit = 0
	}

	data, err := s.ss.ReadAll(ctx, name, limit)
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to read file from storage",
			Metadata: map[string]any{"name": name, "error": err.Error()},
		})
		return nil, 0, fs.NewBackendError("read", name, err)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Data read from file successfully",
		Metadata: map[string]any{"name": name, "size": len(data)},
	})
	return data, len(data), nil
}

func (s *SingleHandleFileService) Close(_ context.Context, h fs.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entryFor(h)
	if err != nil {
		s.warn("Close rejected", map[string]any{"handle": h.String()}, err)
		return err
	}

	entry.IsOpen = false
	s.open = nil

	s.ls.Info(log_service.LogEvent{
		Message:  "File closed successfully",
		Metadata: map[string]any{"name": entry.Name},
	})
	return nil
}

func (s *SingleHandleFileService) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ls.Info(log_service.LogEvent{Message: "Deleting file", Metadata: map[string]any{"name": name}})

	if s.closed {
		return fs.ErrShutdown
	}
	if err := et.ValidateName(name, s.maxName); err != nil {
		s.warn("Rejected file name", map[string]any{"name": name}, err)
		return err
	}

	idx, tracked := s.table.Find(name)
	if tracked {
		entry, err := s.table.Get(idx)
		if err != nil {
			return err
		}
		if entry.IsOpen {
			err := fmt.Errorf("%w: %s", fs.ErrFileInUse, name)
			s.warn("Cannot delete an open file", map[string]any{"name": name}, err)
			return err
		}
	}

	exists, err := s.ss.Exists(ctx, name)
	if err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to probe storage",
			Metadata: map[string]any{"name": name, "error": err.Error()},
		})
		return fs.NewBackendError("exists", name, err)
	}
	if !exists {
		err := fmt.Errorf("%w: %s", fs.ErrNotFound, name)
		s.warn("File does not exist in storage", map[string]any{"name": name}, err)
		return err
	}

	if err := s.ss.Remove(ctx, name); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to remove file from storage",
			Metadata: map[string]any{"name": name, "error": err.Error()},
		})
		return fs.NewBackendError("remove", name, err)
	}

	if tracked {
		if err := s.table.RemoveAt(idx); err != nil {
			return err
		}
		if s.open != nil && idx < s.openIdx {
			s.openIdx--
		}
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File deleted successfully",
		Metadata: map[string]any{"name": name, "tracked": tracked},
	})
	return nil
}

func (s *SingleHandleFileService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open != nil {
		if entry, err := s.table.Get(s.openIdx); err == nil {
			entry.IsOpen = false
			s.ls.Info(log_service.LogEvent{
				Message:  "File was open and has been closed on shutdown",
				Metadata: map[string]any{"name": entry.Name},
			})
		}
		s.open = nil
	}

	if !s.closed {
		s.closed = true
		s.ls.Info(log_service.LogEvent{Message: "File service shut down"})
	}
	return nil
}

func (s *SingleHandleFileService) List(pattern string) ([]et.FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fs.ErrShutdown
	}
	return s.table.Match(pattern)
}

func (s *SingleHandleFileService) Stat(name string) (et.FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return et.FileEntry{}, fs.ErrShutdown
	}
	idx, ok := s.table.Find(name)
	if !ok {
		return et.FileEntry{}, fmt.Errorf("%w: %s", fs.ErrNotTracked, name)
	}
	entry, err := s.table.Get(idx)
	if err != nil {
		return et.FileEntry{}, err
	}
	return *entry, nil
}

func (s *SingleHandleFileService) OpenHandle() (fs.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == nil {
		return fs.NoHandle, false
	}
	return *s.open, true
}

// IsShutdown reports whether Shutdown has run.
func (s *SingleHandleFileService) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ fs.FileService = (*SingleHandleFileService)(nil)
