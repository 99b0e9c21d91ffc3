package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/AnishMulay/sandfile/internal/log_service"
	ss "github.com/AnishMulay/sandfile/internal/storage_service"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorageService keeps each file as one object in an S3-compatible bucket.
type MinioStorageService struct {
	client *minio.Client
	bucket string
	prefix string
	ls     log_service.LogService
}

// NewMinioStorageService connects to the object store and creates the bucket
// if it does not exist yet.
func NewMinioStorageService(ctx context.Context, cfg Config, ls log_service.LogService) (*MinioStorageService, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid minio config: %w", err)
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		ls.Info(log_service.LogEvent{
			Message:  "Creating bucket",
			Metadata: map[string]any{"bucket": cfg.Bucket},
		})
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinioStorageService{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
		ls:     ls,
	}, nil
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.ReplaceAll(prefix, "\\", "/"), "/")
}

func (s *MinioStorageService) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// isNoSuchKey reports whether err is the store's missing-object response.
func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func wrap(op error, name string, err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%w: %s: %w", op, name, ss.ErrObjectNotFound)
	}
	return fmt.Errorf("%w: %s: minio: %w", op, name, err)
}

func (s *MinioStorageService) fail(msg, name string, err error) {
	s.ls.Error(log_service.LogEvent{
		Message:  msg,
		Metadata: map[string]any{"bucket": s.bucket, "key": s.objectKey(name), "error": err.Error()},
	})
}

func (s *MinioStorageService) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.objectKey(name), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	s.fail("Failed to stat object", name, err)
	return false, fmt.Errorf("%w: %s: minio: %w", ss.ErrStatFailed, name, err)
}

func (s *MinioStorageService) CreateEmpty(ctx context.Context, name string) error {
	if err := s.put(ctx, name, nil); err != nil {
		s.fail("Failed to create object", name, err)
		return wrap(ss.ErrCreateFailed, name, err)
	}
	return nil
}

func (s *MinioStorageService) WriteFull(ctx context.Context, name string, data []byte) error {
	s.ls.Debug(log_service.LogEvent{
		Message:  "Writing object",
		Metadata: map[string]any{"bucket": s.bucket, "key": s.objectKey(name), "size": len(data)},
	})
	if err := s.put(ctx, name, data); err != nil {
		s.fail("Failed to write object", name, err)
		return wrap(ss.ErrWriteFailed, name, err)
	}
	return nil
}

// put replaces the object in one request; S3 writes are whole-object already.
func (s *MinioStorageService) put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

func (s *MinioStorageService) ReadAll(ctx context.Context, name string, maxBytes int) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(name), minio.GetObjectOptions{})
	if err != nil {
		s.fail("Failed to open object for reading", name, err)
		return nil, wrap(ss.ErrReadFailed, name, err)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; Stat surfaces NoSuchKey before any bytes are read.
	if _, err := obj.Stat(); err != nil {
		s.fail("Failed to open object for reading", name, err)
		return nil, wrap(ss.ErrReadFailed, name, err)
	}

	if maxBytes <= 0 {
		return []byte{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(obj, int64(maxBytes)))
	if err != nil {
		s.fail("Failed to read object", name, err)
		return nil, wrap(ss.ErrReadFailed, name, err)
	}
	return data, nil
}

// Remove deletes the object. S3 deletes are idempotent, so a missing key is
// reported explicitly to keep the contract the disk backends have.
func (s *MinioStorageService) Remove(ctx context.Context, name string) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ss.ErrRemoveFailed, name, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s: %w", ss.ErrRemoveFailed, name, ss.ErrObjectNotFound)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(name), minio.RemoveObjectOptions{}); err != nil {
		s.fail("Failed to remove object", name, err)
		return wrap(ss.ErrRemoveFailed, name, err)
	}
	return nil
}

var _ ss.StorageService = (*MinioStorageService)(nil)
