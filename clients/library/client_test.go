package sandlib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AnishMulay/sandfile/internal/communication"
	grpccomm "github.com/AnishMulay/sandfile/internal/communication/grpc"
	httpcomm "github.com/AnishMulay/sandfile/internal/communication/http"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
	"github.com/AnishMulay/sandfile/internal/file_service/single"
	"github.com/AnishMulay/sandfile/internal/log_service"
	ps "github.com/AnishMulay/sandfile/internal/server"
	"github.com/AnishMulay/sandfile/internal/storage_service/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transport struct {
	name    string
	newComm func(addr string) communication.Communicator
}

var transports = []transport{
	{
		name: "grpc",
		newComm: func(addr string) communication.Communicator {
			return grpccomm.NewGRPCCommunicator(addr, log_service.NewNopLogService())
		},
	},
	{
		name: "http",
		newComm: func(addr string) communication.Communicator {
			return httpcomm.NewHTTPCommunicator(addr, log_service.NewNopLogService())
		},
	},
}

func startServer(t *testing.T, tr transport, maxFiles int) (*SandfileClient, *storagetest.FakeStorageService) {
	t.Helper()
	store := storagetest.NewFakeStorageService()
	svc := single.NewSingleHandleFileService(store, log_service.NewNopLogService(), single.Options{MaxFiles: maxFiles})
	srv := ps.NewFileServer(tr.newComm("127.0.0.1:0"), svc, log_service.NewNopLogService())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	clientComm := tr.newComm("")
	t.Cleanup(func() { _ = clientComm.Stop() })
	return NewSandfileClient(srv.Address(), clientComm, nil), store
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientRoundTrip(t *testing.T) {
	for _, tr := range transports {
		t.Run(tr.name, func(t *testing.T) {
			ctx := testCtx(t)
			c, store := startServer(t, tr, 4)

			require.NoError(t, c.Create(ctx, "a.txt"))
			h, err := c.Open(ctx, "a.txt")
			require.NoError(t, err)

			require.NoError(t, c.Write(ctx, h, []byte("abc")))
			data, n, err := c.Read(ctx, h, 10)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			assert.Equal(t, "abc", string(data))

			entry, err := c.Stat(ctx, "a.txt")
			require.NoError(t, err)
			assert.EqualValues(t, 3, entry.Size)
			assert.True(t, entry.IsOpen)

			require.NoError(t, c.Close(ctx, h))

			entries, err := c.List(ctx, "*.txt")
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.False(t, entries[0].IsOpen)

			require.NoError(t, c.Delete(ctx, "a.txt"))
			assert.Zero(t, store.Len())
		})
	}
}

func TestClientPreservesErrorIdentity(t *testing.T) {
	for _, tr := range transports {
		t.Run(tr.name, func(t *testing.T) {
			ctx := testCtx(t)
			c, store := startServer(t, tr, 1)

			require.NoError(t, c.Create(ctx, "a"))
			require.ErrorIs(t, c.Create(ctx, "a"), fs.ErrAlreadyTracked)
			require.ErrorIs(t, c.Create(ctx, "b"), fs.ErrCapacityExceeded)
			require.ErrorIs(t, c.Create(ctx, "x/y"), fs.ErrInvalidName)

			_, err := c.Open(ctx, "ghost")
			require.ErrorIs(t, err, fs.ErrNotFound)

			h, err := c.Open(ctx, "a")
			require.NoError(t, err)
			_, err = c.Open(ctx, "a")
			require.ErrorIs(t, err, fs.ErrAlreadyOpen)
			require.ErrorIs(t, c.Delete(ctx, "a"), fs.ErrFileInUse)

			_, err = c.Stat(ctx, "ghost")
			require.ErrorIs(t, err, fs.ErrNotTracked)

			store.FailOn(storagetest.OpWriteFull, errors.New("disk full"))
			err = c.Write(ctx, h, []byte("x"))
			assert.True(t, fs.IsBackendError(err))
			store.FailOn(storagetest.OpWriteFull, nil)

			require.NoError(t, c.Close(ctx, h))
			require.ErrorIs(t, c.Close(ctx, h), fs.ErrInvalidHandle)
		})
	}
}

func TestWriteFileAndReadFile(t *testing.T) {
	ctx := testCtx(t)
	c, store := startServer(t, transports[0], 4)

	require.NoError(t, c.WriteFile(ctx, "notes", []byte("first")))
	require.NoError(t, c.WriteFile(ctx, "notes", []byte("second")))

	stored, ok := store.Get("notes")
	require.True(t, ok)
	assert.Equal(t, "second", string(stored))

	data, err := c.ReadFile(ctx, "notes", 0)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	data, err = c.ReadFile(ctx, "notes", 4)
	require.NoError(t, err)
	assert.Equal(t, "sec", string(data))

	_, err = c.ReadFile(ctx, "missing", 0)
	require.ErrorIs(t, err, fs.ErrNotFound)

	// Nothing is left open.
	h, err := c.Open(ctx, "notes")
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx, h))
}

func TestClientWithoutServer(t *testing.T) {
	c := NewSandfileClient("", transports[0].newComm(""), nil)
	require.Error(t, c.Create(context.Background(), "a"))

	var nilClient *SandfileClient
	require.Error(t, nilClient.Delete(context.Background(), "a"))
}
