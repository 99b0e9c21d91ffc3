package server

import (
	"errors"

	"github.com/AnishMulay/sandfile/internal/communication"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
)

var (
	// Server lifecycle errors
	ErrServerStartFailed = errors.New("failed to start server")
	ErrServerStopFailed  = errors.New("failed to stop server")

	// Message handling errors
	ErrInvalidPayloadType = errors.New("invalid payload type for message")
	ErrUnknownMessageType = errors.New("no handler registered for message type")
)

// Response headers describing a failure in more detail than the code alone.
const (
	HeaderErrorKind = "X-Sand-Error"
	HeaderBackendOp = "X-Sand-Backend-Op"
	HeaderFileName  = "X-Sand-File"
)

const kindBackend = "backend"

var errorKinds = []struct {
	kind string
	err  error
	code communication.SandCode
}{
	{"invalid_name", fs.ErrInvalidName, communication.CodeBadRequest},
	{"invalid_pattern", fs.ErrInvalidPattern, communication.CodeBadRequest},
	{"not_found", fs.ErrNotFound, communication.CodeNotFound},
	{"not_tracked", fs.ErrNotTracked, communication.CodeNotFound},
	{"already_tracked", fs.ErrAlreadyTracked, communication.CodeAlreadyExists},
	{"already_open", fs.ErrAlreadyOpen, communication.CodeConflict},
	{"file_in_use", fs.ErrFileInUse, communication.CodeConflict},
	{"invalid_handle", fs.ErrInvalidHandle, communication.CodeInvalidHandle},
	{"capacity_exceeded", fs.ErrCapacityExceeded, communication.CodeCapacityExceeded},
	{"shutdown", fs.ErrShutdown, communication.CodeUnavailable},
}

// ErrorResponse encodes err as a failure Response. The error kind travels in
// a header so clients can rebuild the matching sentinel.
func ErrorResponse(err error) *communication.Response {
	resp := &communication.Response{
		Code:    communication.CodeInternal,
		Body:    []byte(err.Error()),
		Headers: map[string]string{},
	}

	var be *fs.BackendError
	if errors.As(err, &be) {
		resp.Headers[HeaderErrorKind] = kindBackend
		resp.Headers[HeaderBackendOp] = be.Op
		resp.Headers[HeaderFileName] = be.Name
		return resp
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			resp.Code = k.code
			resp.Headers[HeaderErrorKind] = k.kind
			return resp
		}
	}
	return resp
}

// RemoteError is a failure reported by a server. It unwraps to the sentinel
// the server matched, so errors.Is works across the wire.
type RemoteError struct {
	Code communication.SandCode
	Msg  string
	kind error
}

func (e *RemoteError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return e.Msg
}

func (e *RemoteError) Unwrap() error {
	return e.kind
}

// ErrorFromResponse is the inverse of ErrorResponse. It returns nil for OK.
func ErrorFromResponse(resp *communication.Response) error {
	if resp.Code == communication.CodeOK {
		return nil
	}

	msg := string(resp.Body)
	kind := resp.Headers[HeaderErrorKind]

	if kind == kindBackend {
		return fs.NewBackendError(resp.Headers[HeaderBackendOp], resp.Headers[HeaderFileName], errors.New(msg))
	}

	re := &RemoteError{Code: resp.Code, Msg: msg}
	for _, k := range errorKinds {
		if k.kind == kind {
			re.kind = k.err
			return re
		}
	}

	return re
}
