package file_service

import (
	"context"
	"fmt"

	"github.com/AnishMulay/sandfile/internal/entry_table"
)

// Handle identifies the open file. It is only valid while it equals the
// service's current open handle; Epoch changes on every successful Open so a
// handle kept across close and reopen is rejected. Index is the entry's table
// position when it was opened. Deleting an earlier entry moves the entry but
// leaves the handle valid.
type Handle struct {
	Index int    `json:"index"`
	Epoch uint64 `json:"epoch"`
}

// NoHandle is the zero reference returned alongside errors.
var NoHandle = Handle{Index: -1}

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.Index, h.Epoch)
}

// FileService tracks files, admits at most one open file at a time and
// mediates all I/O against the storage backend.
type FileService interface {
	Create(ctx context.Context, name string) error
	Open(ctx context.Context, name string) (Handle, error)
	Write(ctx context.Context, h Handle, data []byte) error
	// Read returns up to bufferCapacity-1 bytes and their count.
	Read(ctx context.Context, h Handle, bufferCapacity int) ([]byte, int, error)
	Close(ctx context.Context, h Handle) error
	Delete(ctx context.Context, name string) error
	// Shutdown releases the open handle, if any, without touching storage.
	Shutdown() error

	List(pattern string) ([]entry_table.FileEntry, error)
	Stat(name string) (entry_table.FileEntry, error)
	OpenHandle() (Handle, bool)
}
