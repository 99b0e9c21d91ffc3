package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/AnishMulay/sandfile/internal/communication"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
	"github.com/AnishMulay/sandfile/internal/file_service/single"
	"github.com/AnishMulay/sandfile/internal/log_service"
	"github.com/AnishMulay/sandfile/internal/storage_service/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommunicator records lifecycle calls without opening a socket.
type stubCommunicator struct {
	started bool
	stopped bool
	handler communication.MessageHandler
	stopErr error
}

func (c *stubCommunicator) Start(h communication.MessageHandler) error {
	c.started = true
	c.handler = h
	return nil
}

func (c *stubCommunicator) Stop() error {
	c.stopped = true
	return c.stopErr
}

func (c *stubCommunicator) Send(context.Context, string, communication.Message) (*communication.Response, error) {
	return nil, errors.New("not implemented")
}

func (c *stubCommunicator) Address() string                 { return "stub" }
func (c *stubCommunicator) RegisterPayloadType(string, any) {}

func newFileServer(t *testing.T, maxFiles int) (*FileServer, *single.SingleHandleFileService, *storagetest.FakeStorageService) {
	t.Helper()
	store := storagetest.NewFakeStorageService()
	svc := single.NewSingleHandleFileService(store, log_service.NewNopLogService(), single.Options{MaxFiles: maxFiles})
	return NewFileServer(&stubCommunicator{}, svc, log_service.NewNopLogService()), svc, store
}

func send(t *testing.T, s *FileServer, msgType string, payload any) *communication.Response {
	t.Helper()
	resp, err := s.HandleMessage(context.Background(), communication.Message{From: "test", Type: msgType, Payload: payload})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestHandleMessageLifecycle(t *testing.T) {
	s, _, store := newFileServer(t, 4)

	resp := send(t, s, communication.MessageTypeCreate, communication.CreateRequest{Name: "a.txt"})
	require.Equal(t, communication.CodeOK, resp.Code)

	resp = send(t, s, communication.MessageTypeOpen, communication.OpenRequest{Name: "a.txt"})
	require.Equal(t, communication.CodeOK, resp.Code)
	var open communication.OpenResponse
	require.NoError(t, json.Unmarshal(resp.Body, &open))
	assert.Equal(t, 0, open.Handle.Index)

	resp = send(t, s, communication.MessageTypeWrite, communication.WriteRequest{Handle: open.Handle, Data: []byte("abc")})
	require.Equal(t, communication.CodeOK, resp.Code)

	resp = send(t, s, communication.MessageTypeRead, communication.ReadRequest{Handle: open.Handle, BufferCapacity: 10})
	require.Equal(t, communication.CodeOK, resp.Code)
	var read communication.ReadResponse
	require.NoError(t, json.Unmarshal(resp.Body, &read))
	assert.Equal(t, "abc", string(read.Data))
	assert.Equal(t, 3, read.N)

	resp = send(t, s, communication.MessageTypeStat, communication.StatRequest{Name: "a.txt"})
	require.Equal(t, communication.CodeOK, resp.Code)
	var stat communication.StatResponse
	require.NoError(t, json.Unmarshal(resp.Body, &stat))
	assert.EqualValues(t, 3, stat.Entry.Size)
	assert.True(t, stat.Entry.IsOpen)

	resp = send(t, s, communication.MessageTypeClose, communication.CloseRequest{Handle: open.Handle})
	require.Equal(t, communication.CodeOK, resp.Code)

	resp = send(t, s, communication.MessageTypeList, nil)
	require.Equal(t, communication.CodeOK, resp.Code)
	var list communication.ListResponse
	require.NoError(t, json.Unmarshal(resp.Body, &list))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "a.txt", list.Entries[0].Name)

	resp = send(t, s, communication.MessageTypeDelete, communication.DeleteRequest{Name: "a.txt"})
	require.Equal(t, communication.CodeOK, resp.Code)
	assert.Zero(t, store.Len())
}

func TestHandleMessageErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		setupFn  func(t *testing.T, s *FileServer, store *storagetest.FakeStorageService)
		msgType  string
		payload  any
		wantCode communication.SandCode
		wantKind string
	}{
		{
			name:     "invalid name",
			msgType:  communication.MessageTypeCreate,
			payload:  communication.CreateRequest{Name: "a/b"},
			wantCode: communication.CodeBadRequest,
			wantKind: "invalid_name",
		},
		{
			name: "already tracked",
			setupFn: func(t *testing.T, s *FileServer, _ *storagetest.FakeStorageService) {
				send(t, s, communication.MessageTypeCreate, communication.CreateRequest{Name: "a"})
			},
			msgType:  communication.MessageTypeCreate,
			payload:  communication.CreateRequest{Name: "a"},
			wantCode: communication.CodeAlreadyExists,
			wantKind: "already_tracked",
		},
		{
			name:     "not found",
			msgType:  communication.MessageTypeOpen,
			payload:  communication.OpenRequest{Name: "ghost"},
			wantCode: communication.CodeNotFound,
			wantKind: "not_found",
		},
		{
			name:     "not tracked",
			msgType:  communication.MessageTypeStat,
			payload:  communication.StatRequest{Name: "ghost"},
			wantCode: communication.CodeNotFound,
			wantKind: "not_tracked",
		},
		{
			name: "file in use",
			setupFn: func(t *testing.T, s *FileServer, _ *storagetest.FakeStorageService) {
				send(t, s, communication.MessageTypeCreate, communication.CreateRequest{Name: "a"})
				send(t, s, communication.MessageTypeOpen, communication.OpenRequest{Name: "a"})
			},
			msgType:  communication.MessageTypeDelete,
			payload:  communication.DeleteRequest{Name: "a"},
			wantCode: communication.CodeConflict,
			wantKind: "file_in_use",
		},
		{
			name:     "invalid handle",
			msgType:  communication.MessageTypeClose,
			payload:  communication.CloseRequest{Handle: fs.Handle{Index: 0, Epoch: 1}},
			wantCode: communication.CodeInvalidHandle,
			wantKind: "invalid_handle",
		},
		{
			name: "capacity exceeded",
			setupFn: func(t *testing.T, s *FileServer, _ *storagetest.FakeStorageService) {
				send(t, s, communication.MessageTypeCreate, communication.CreateRequest{Name: "a"})
				send(t, s, communication.MessageTypeCreate, communication.CreateRequest{Name: "b"})
			},
			msgType:  communication.MessageTypeCreate,
			payload:  communication.CreateRequest{Name: "c"},
			wantCode: communication.CodeCapacityExceeded,
			wantKind: "capacity_exceeded",
		},
		{
			name: "backend failure",
			setupFn: func(_ *testing.T, _ *FileServer, store *storagetest.FakeStorageService) {
				store.FailOn(storagetest.OpCreateEmpty, errors.New("disk gone"))
			},
			msgType:  communication.MessageTypeCreate,
			payload:  communication.CreateRequest{Name: "a"},
			wantCode: communication.CodeInternal,
			wantKind: kindBackend,
		},
		{
			name:     "bad list pattern",
			msgType:  communication.MessageTypeList,
			payload:  communication.ListRequest{Pattern: "["},
			wantCode: communication.CodeBadRequest,
			wantKind: "invalid_pattern",
		},
		{
			name:     "wrong payload type",
			msgType:  communication.MessageTypeOpen,
			payload:  communication.CreateRequest{Name: "a"},
			wantCode: communication.CodeBadRequest,
		},
		{
			name:     "unknown type",
			msgType:  "rename",
			wantCode: communication.CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, store := newFileServer(t, 2)
			if tt.setupFn != nil {
				tt.setupFn(t, s, store)
			}

			resp := send(t, s, tt.msgType, tt.payload)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantKind, resp.Headers[HeaderErrorKind])
			assert.NotEmpty(t, resp.Body)
		})
	}
}

func TestErrorFromResponse(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "not found", err: fs.ErrNotFound},
		{name: "not tracked", err: fs.ErrNotTracked},
		{name: "already open", err: fs.ErrAlreadyOpen},
		{name: "file in use", err: fs.ErrFileInUse},
		{name: "already tracked", err: fs.ErrAlreadyTracked},
		{name: "invalid handle", err: fs.ErrInvalidHandle},
		{name: "invalid name", err: fs.ErrInvalidName},
		{name: "capacity", err: fs.ErrCapacityExceeded},
		{name: "shutdown", err: fs.ErrShutdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := errors.Join(errors.New("context"), tt.err)
			got := ErrorFromResponse(ErrorResponse(wrapped))
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, wrapped.Error(), got.Error())

			var re *RemoteError
			require.ErrorAs(t, got, &re)
		})
	}

	t.Run("backend", func(t *testing.T) {
		got := ErrorFromResponse(ErrorResponse(fs.NewBackendError("write", "a", errors.New("io"))))
		var be *fs.BackendError
		require.ErrorAs(t, got, &be)
		assert.Equal(t, "write", be.Op)
		assert.Equal(t, "a", be.Name)
	})

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, ErrorFromResponse(&communication.Response{Code: communication.CodeOK}))
	})

	t.Run("unknown kind keeps code", func(t *testing.T) {
		got := ErrorFromResponse(&communication.Response{Code: communication.CodeInternal, Body: []byte("weird")})
		var re *RemoteError
		require.ErrorAs(t, got, &re)
		assert.Equal(t, communication.CodeInternal, re.Code)
		assert.Equal(t, "weird", re.Error())
	})
}

func TestStartStop(t *testing.T) {
	comm := &stubCommunicator{}
	store := storagetest.NewFakeStorageService()
	svc := single.NewSingleHandleFileService(store, log_service.NewNopLogService(), single.Options{})
	s := NewFileServer(comm, svc, log_service.NewNopLogService())

	require.NoError(t, s.Start())
	assert.True(t, comm.started)
	require.NotNil(t, comm.handler)

	_, err := comm.handler(context.Background(), communication.Message{Type: communication.MessageTypeCreate, Payload: communication.CreateRequest{Name: "x"}})
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "x")
	require.NoError(t, err)

	require.NoError(t, s.Stop())
	assert.True(t, comm.stopped)
	assert.True(t, svc.IsShutdown())
	_, open := svc.OpenHandle()
	assert.False(t, open)
}

func TestStopReportsCommunicatorError(t *testing.T) {
	comm := &stubCommunicator{stopErr: errors.New("stuck")}
	store := storagetest.NewFakeStorageService()
	svc := single.NewSingleHandleFileService(store, log_service.NewNopLogService(), single.Options{})
	s := NewFileServer(comm, svc, log_service.NewNopLogService())

	err := s.Stop()
	require.ErrorIs(t, err, ErrServerStopFailed)
	assert.True(t, svc.IsShutdown())
}
