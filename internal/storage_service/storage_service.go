package storage_service

import "context"

// StorageService is the persisted byte store behind the file table. It is
// authoritative: the table only caches what it last saw here.
type StorageService interface {
	Exists(ctx context.Context, name string) (bool, error)
	// CreateEmpty creates name with zero length, truncating an existing object.
	CreateEmpty(ctx context.Context, name string) error
	// WriteFull replaces the whole object with data.
	WriteFull(ctx context.Context, name string, data []byte) error
	// ReadAll returns at most maxBytes bytes from the start of the object.
	ReadAll(ctx context.Context, name string, maxBytes int) ([]byte, error)
	Remove(ctx context.Context, name string) error
}
