package sandlib

import (
	"github.com/AnishMulay/sandfile/internal/communication"
	"github.com/AnishMulay/sandfile/internal/log_service"
)

// SandfileClient holds the state for one connection to a sandfile server.
// It keeps no handle table; the server owns the single open handle.
type SandfileClient struct {
	ServerAddr string
	Comm       communication.Communicator
	ID         string

	ls log_service.LogService
}
