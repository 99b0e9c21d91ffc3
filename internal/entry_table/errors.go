package entry_table

import "errors"

var (
	ErrAlreadyTracked   = errors.New("file already tracked")
	ErrCapacityExceeded = errors.New("file table is full")
	ErrIndexOutOfRange  = errors.New("table index out of range")
	ErrEntryOpen        = errors.New("entry is open")
	ErrInvalidName      = errors.New("invalid file name")
	ErrInvalidPattern   = errors.New("invalid name pattern")
)
