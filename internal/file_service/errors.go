package file_service

import (
	"errors"
	"fmt"

	"github.com/AnishMulay/sandfile/internal/entry_table"
)

var (
	ErrAlreadyTracked   = entry_table.ErrAlreadyTracked
	ErrCapacityExceeded = entry_table.ErrCapacityExceeded
	ErrInvalidName      = entry_table.ErrInvalidName
	ErrInvalidPattern   = entry_table.ErrInvalidPattern

	ErrAlreadyOpen   = errors.New("a file is already open")
	ErrInvalidHandle = errors.New("no file is open or wrong file reference")
	ErrNotFound      = errors.New("file does not exist")
	ErrFileInUse     = errors.New("cannot delete an open file")
	ErrNotTracked    = errors.New("file is not tracked")
	ErrShutdown      = errors.New("file service has been shut down")
)

// BackendError carries a storage failure up unchanged.
type BackendError struct {
	Op   string
	Name string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func NewBackendError(op, name string, err error) *BackendError {
	return &BackendError{Op: op, Name: name, Err: err}
}

// IsBackendError reports whether err came from the storage backend.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
