package storage_service

import "errors"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrStatFailed     = errors.New("failed to stat object")
	ErrCreateFailed   = errors.New("failed to create object")
	ErrWriteFailed    = errors.New("failed to write object")
	ErrReadFailed     = errors.New("failed to read object")
	ErrRemoveFailed   = errors.New("failed to remove object")
)
