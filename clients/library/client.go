package sandlib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AnishMulay/sandfile/internal/communication"
	et "github.com/AnishMulay/sandfile/internal/entry_table"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
	"github.com/AnishMulay/sandfile/internal/log_service"
	ps "github.com/AnishMulay/sandfile/internal/server"
	"github.com/google/uuid"
)

// DefaultReadCapacity is the buffer capacity ReadFile uses when none is given.
// Over gRPC a single write or read is bounded by grpccomm.MaxMessageSize.
const DefaultReadCapacity = 1 << 20

func NewSandfileClient(serverAddr string, comm communication.Communicator, ls log_service.LogService) *SandfileClient {
	if ls == nil {
		ls = log_service.NewNopLogService()
	}
	return &SandfileClient{
		ServerAddr: serverAddr,
		Comm:       comm,
		ID:         "sandfile-client-" + uuid.NewString(),
		ls:         ls,
	}
}

func (c *SandfileClient) call(ctx context.Context, msgType string, payload any, out any) error {
	if c == nil || c.Comm == nil {
		return fmt.Errorf("sandfile communicator is nil")
	}
	if c.ServerAddr == "" {
		return fmt.Errorf("sandfile server address is empty")
	}

	resp, err := c.Comm.Send(ctx, c.ServerAddr, communication.Message{
		From:    c.ID,
		Type:    msgType,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	if resp == nil {
		return fmt.Errorf("%s failed: empty response", msgType)
	}

	if err := ps.ErrorFromResponse(resp); err != nil {
		c.ls.Debug(log_service.LogEvent{
			Message:  "Server rejected request",
			Metadata: map[string]any{"type": msgType, "code": resp.Code, "error": err.Error()},
		})
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", msgType, err)
		}
	}
	return nil
}

func (c *SandfileClient) Create(ctx context.Context, name string) error {
	return c.call(ctx, communication.MessageTypeCreate, communication.CreateRequest{Name: name}, nil)
}

func (c *SandfileClient) Open(ctx context.Context, name string) (fs.Handle, error) {
	var resp communication.OpenResponse
	if err := c.call(ctx, communication.MessageTypeOpen, communication.OpenRequest{Name: name}, &resp); err != nil {
		return fs.NoHandle, err
	}
	return resp.Handle, nil
}

func (c *SandfileClient) Write(ctx context.Context, h fs.Handle, data []byte) error {
	return c.call(ctx, communication.MessageTypeWrite, communication.WriteRequest{Handle: h, Data: data}, nil)
}

func (c *SandfileClient) Read(ctx context.Context, h fs.Handle, bufferCapacity int) ([]byte, int, error) {
	var resp communication.ReadResponse
	req := communication.ReadRequest{Handle: h, BufferCapacity: bufferCapacity}
	if err := c.call(ctx, communication.MessageTypeRead, req, &resp); err != nil {
		return nil, 0, err
	}
	if resp.Data == nil {
		resp.Data = []byte{}
	}
	return resp.Data, resp.N, nil
}

func (c *SandfileClient) Close(ctx context.Context, h fs.Handle) error {
	return c.call(ctx, communication.MessageTypeClose, communication.CloseRequest{Handle: h}, nil)
}

func (c *SandfileClient) Delete(ctx context.Context, name string) error {
	return c.call(ctx, communication.MessageTypeDelete, communication.DeleteRequest{Name: name}, nil)
}

func (c *SandfileClient) List(ctx context.Context, pattern string) ([]et.FileEntry, error) {
	var resp communication.ListResponse
	if err := c.call(ctx, communication.MessageTypeList, communication.ListRequest{Pattern: pattern}, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *SandfileClient) Stat(ctx context.Context, name string) (et.FileEntry, error) {
	var resp communication.StatResponse
	if err := c.call(ctx, communication.MessageTypeStat, communication.StatRequest{Name: name}, &resp); err != nil {
		return et.FileEntry{}, err
	}
	return resp.Entry, nil
}

// WriteFile replaces the contents of name, creating it first if the server
// does not know it. The file is closed again before returning.
func (c *SandfileClient) WriteFile(ctx context.Context, name string, data []byte) error {
	h, err := c.Open(ctx, name)
	if errors.Is(err, fs.ErrNotFound) {
		if err := c.Create(ctx, name); err != nil && !errors.Is(err, fs.ErrAlreadyTracked) {
			return err
		}
		h, err = c.Open(ctx, name)
	}
	if err != nil {
		return err
	}

	writeErr := c.Write(ctx, h, data)
	if err := c.Close(ctx, h); err != nil && writeErr == nil {
		return err
	}
	return writeErr
}

// ReadFile opens name, reads up to capacity-1 bytes and closes it again.
func (c *SandfileClient) ReadFile(ctx context.Context, name string, capacity int) ([]byte, error) {
	if capacity <= 0 {
		capacity = DefaultReadCapacity
	}
	h, err := c.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	data, _, readErr := c.Read(ctx, h, capacity)
	if err := c.Close(ctx, h); err != nil && readErr == nil {
		return nil, err
	}
	return data, readErr
}
