package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AnishMulay/sandfile/internal/communication"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
	"github.com/AnishMulay/sandfile/internal/log_service"
)

type Server interface {
	Start() error
	Stop() error
}

// FileServer exposes a FileService over a Communicator.
type FileServer struct {
	comm communication.Communicator
	fs   fs.FileService
	ls   log_service.LogService
}

func NewFileServer(comm communication.Communicator, fileService fs.FileService, ls log_service.LogService) *FileServer {
	return &FileServer{
		comm: comm,
		fs:   fileService,
		ls:   ls,
	}
}

func (s *FileServer) Start() error {
	s.ls.Info(log_service.LogEvent{Message: "Starting file server"})

	if err := s.comm.Start(s.HandleMessage); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStartFailed, err)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "File server started",
		Metadata: map[string]any{"address": s.comm.Address()},
	})
	return nil
}

// Stop stops accepting messages, then shuts the file service down so an open
// file is released.
func (s *FileServer) Stop() error {
	s.ls.Info(log_service.LogEvent{Message: "Stopping file server"})

	commErr := s.comm.Stop()
	if err := s.fs.Shutdown(); err != nil {
		s.ls.Error(log_service.LogEvent{
			Message:  "Failed to shut down file service",
			Metadata: map[string]any{"error": err.Error()},
		})
		return fmt.Errorf("%w: %w", ErrServerStopFailed, err)
	}
	if commErr != nil {
		return fmt.Errorf("%w: %w", ErrServerStopFailed, commErr)
	}
	return nil
}

func (s *FileServer) Address() string {
	return s.comm.Address()
}

// HandleMessage is the central router for every incoming message.
func (s *FileServer) HandleMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Received message",
		Metadata: map[string]any{"type": msg.Type, "from": msg.From},
	})

	switch msg.Type {
	case communication.MessageTypeCreate:
		req, ok := msg.Payload.(communication.CreateRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.Create(ctx, req.Name))

	case communication.MessageTypeOpen:
		req, ok := msg.Payload.(communication.OpenRequest)
		if !ok {
			return s.badPayload(msg)
		}
		h, err := s.fs.Open(ctx, req.Name)
		if err != nil {
			return s.respond(nil, err)
		}
		return s.respond(communication.OpenResponse{Handle: h}, nil)

	case communication.MessageTypeWrite:
		req, ok := msg.Payload.(communication.WriteRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.Write(ctx, req.Handle, req.Data))

	case communication.MessageTypeRead:
		req, ok := msg.Payload.(communication.ReadRequest)
		if !ok {
			return s.badPayload(msg)
		}
		data, n, err := s.fs.Read(ctx, req.Handle, req.BufferCapacity)
		if err != nil {
			return s.respond(nil, err)
		}
		return s.respond(communication.ReadResponse{Data: data, N: n}, nil)

	case communication.MessageTypeClose:
		req, ok := msg.Payload.(communication.CloseRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.Close(ctx, req.Handle))

	case communication.MessageTypeDelete:
		req, ok := msg.Payload.(communication.DeleteRequest)
		if !ok {
			return s.badPayload(msg)
		}
		return s.respond(nil, s.fs.Delete(ctx, req.Name))

	case communication.MessageTypeList:
		// The payload is optional; a bare list returns everything.
		var pattern string
		if msg.Payload != nil {
			req, ok := msg.Payload.(communication.ListRequest)
			if !ok {
				return s.badPayload(msg)
			}
			pattern = req.Pattern
		}
		entries, err := s.fs.List(pattern)
		if err != nil {
			return s.respond(nil, err)
		}
		return s.respond(communication.ListResponse{Entries: entries}, nil)

	case communication.MessageTypeStat:
		req, ok := msg.Payload.(communication.StatRequest)
		if !ok {
			return s.badPayload(msg)
		}
		entry, err := s.fs.Stat(req.Name)
		if err != nil {
			return s.respond(nil, err)
		}
		return s.respond(communication.StatResponse{Entry: entry}, nil)

	default:
		s.ls.Warn(log_service.LogEvent{
			Message:  "Unhandled message type",
			Metadata: map[string]any{"type": msg.Type, "from": msg.From},
		})
		return &communication.Response{
			Code: communication.CodeBadRequest,
			Body: []byte(fmt.Sprintf("%v: %s", ErrUnknownMessageType, msg.Type)),
		}, nil
	}
}

func (s *FileServer) badPayload(msg communication.Message) (*communication.Response, error) {
	s.ls.Warn(log_service.LogEvent{
		Message:  "Invalid payload type for message",
		Metadata: map[string]any{"type": msg.Type, "payload": fmt.Sprintf("%T", msg.Payload)},
	})
	return &communication.Response{
		Code: communication.CodeBadRequest,
		Body: []byte(fmt.Sprintf("%v: %s", ErrInvalidPayloadType, msg.Type)),
	}, nil
}

// respond standardizes JSON responses and error codes.
func (s *FileServer) respond(data any, err error) (*communication.Response, error) {
	if err != nil {
		return ErrorResponse(err), nil
	}

	if data == nil {
		return &communication.Response{Code: communication.CodeOK}, nil
	}

	body, marshalErr := json.Marshal(data)
	if marshalErr != nil {
		return &communication.Response{
			Code: communication.CodeInternal,
			Body: []byte("failed to marshal response: " + marshalErr.Error()),
		}, nil
	}

	return &communication.Response{
		Code: communication.CodeOK,
		Body: body,
	}, nil
}
