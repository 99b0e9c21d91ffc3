package simple

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnishMulay/sandfile/internal/communication"
	grpccomm "github.com/AnishMulay/sandfile/internal/communication/grpc"
	httpcomm "github.com/AnishMulay/sandfile/internal/communication/http"
	"github.com/AnishMulay/sandfile/internal/config"
	"github.com/AnishMulay/sandfile/internal/file_service/single"
	"github.com/AnishMulay/sandfile/internal/log_service"
	"github.com/AnishMulay/sandfile/internal/log_service/console"
	"github.com/AnishMulay/sandfile/internal/log_service/localdisc"
	"github.com/AnishMulay/sandfile/internal/server"
	ss "github.com/AnishMulay/sandfile/internal/storage_service"
	"github.com/AnishMulay/sandfile/internal/storage_service/billyfs"
	miniostore "github.com/AnishMulay/sandfile/internal/storage_service/minio"
)

type SingleNodeServer struct {
	server *server.FileServer
	fs     *single.SingleHandleFileService
	ls     log_service.LogService
	closer io.Closer
}

func (s *SingleNodeServer) Start() error {
	return s.server.Start()
}

// Stop stops the transport and shuts the file service down.
func (s *SingleNodeServer) Stop() error {
	err := s.server.Stop()
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *SingleNodeServer) Address() string {
	return s.server.Address()
}

func (s *SingleNodeServer) FileService() *single.SingleHandleFileService {
	return s.fs
}

// Run starts the server and blocks until SIGINT or SIGTERM.
func (s *SingleNodeServer) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	signal.Stop(c)

	s.ls.Info(log_service.LogEvent{
		Message:  "Received signal, shutting down",
		Metadata: map[string]any{"signal": sig.String()},
	})
	return s.Stop()
}

func Build(cfg *config.Config) (*SingleNodeServer, error) {
	ls, closer, err := NewLogService(cfg)
	if err != nil {
		return nil, err
	}

	storage, err := NewStorageService(cfg, ls)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	fs := single.NewSingleHandleFileService(storage, ls, single.Options{
		MaxFiles:      cfg.Table.MaxFiles,
		MaxNameLength: cfg.Table.MaxNameLength,
	})
	comm := NewCommunicator(cfg.Transport.Type, cfg.Transport.Listen, ls)

	ls.Info(log_service.LogEvent{
		Message: "Built single node server",
		Metadata: map[string]any{
			"node":      cfg.Node.ID,
			"storage":   cfg.Storage.Type,
			"transport": cfg.Transport.Type,
			"maxFiles":  cfg.Table.MaxFiles,
		},
	})

	return &SingleNodeServer{
		server: server.NewFileServer(comm, fs, ls),
		fs:     fs,
		ls:     ls,
		closer: closer,
	}, nil
}

// NewLogService returns the configured logger and, for file output, the
// closer for its log file.
func NewLogService(cfg *config.Config) (log_service.LogService, io.Closer, error) {
	switch cfg.Log.Output {
	case config.LogOutputConsole:
		return console.NewConsoleLogService(cfg.Node.ID, cfg.Log.Level, cfg.Log.Color), nil, nil
	default:
		ls, err := localdisc.NewLocalDiscLogService(cfg.Log.Dir, cfg.Node.ID, cfg.Log.Level)
		if err != nil {
			return nil, nil, err
		}
		return ls, ls, nil
	}
}

func NewStorageService(cfg *config.Config, ls log_service.LogService) (ss.StorageService, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory:
		return billyfs.NewMemoryStorageService(ls), nil
	case config.StorageMinio:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		m := cfg.Storage.Minio
		return miniostore.NewMinioStorageService(ctx, miniostore.Config{
			Endpoint:  m.Endpoint,
			Bucket:    m.Bucket,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			UseSSL:    m.UseSSL,
			Prefix:    m.Prefix,
		}, ls)
	case config.StorageLocal, "":
		return billyfs.NewLocalStorageService(cfg.Storage.BaseDir, ls)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func NewCommunicator(kind, addr string, ls log_service.LogService) communication.Communicator {
	if kind == config.TransportHTTP {
		return httpcomm.NewHTTPCommunicator(addr, ls)
	}
	return grpccomm.NewGRPCCommunicator(addr, ls)
}
