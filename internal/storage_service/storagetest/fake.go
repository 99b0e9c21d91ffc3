package storagetest

import (
	"context"
	"fmt"
	"sync"

	ss "github.com/AnishMulay/sandfile/internal/storage_service"
)

// Operation names accepted by FakeStorageService.FailOn.
const (
	OpExists      = "exists"
	OpCreateEmpty = "create"
	OpWriteFull   = "write"
	OpReadAll     = "read"
	OpRemove      = "remove"
)

// FakeStorageService is a map-backed StorageService whose operations can be
// made to fail on demand.
type FakeStorageService struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures map[string]error
	calls    map[string]int
}

func NewFakeStorageService() *FakeStorageService {
	return &FakeStorageService{
		objects:  make(map[string][]byte),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (f *FakeStorageService) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Put seeds an object without going through the tracked API.
func (f *FakeStorageService) Put(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = append([]byte(nil), data...)
}

// Get returns an object's bytes and whether it exists.
func (f *FakeStorageService) Get(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	return append([]byte(nil), data...), ok
}

func (f *FakeStorageService) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// Calls reports how many times op was invoked.
func (f *FakeStorageService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeStorageService) check(op string) error {
	f.calls[op]++
	return f.failures[op]
}

func (f *FakeStorageService) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(OpExists); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ss.ErrStatFailed, name, err)
	}
	_, ok := f.objects[name]
	return ok, nil
}

func (f *FakeStorageService) CreateEmpty(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(OpCreateEmpty); err != nil {
		return fmt.Errorf("%w: %s: %w", ss.ErrCreateFailed, name, err)
	}
	f.objects[name] = []byte{}
	return nil
}

func (f *FakeStorageService) WriteFull(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(OpWriteFull); err != nil {
		return fmt.Errorf("%w: %s: %w", ss.ErrWriteFailed, name, err)
	}
	f.objects[name] = append([]byte(nil), data...)
	return nil
}

func (f *FakeStorageService) ReadAll(_ context.Context, name string, maxBytes int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(OpReadAll); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ss.ErrReadFailed, name, err)
	}
	data, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", ss.ErrReadFailed, name, ss.ErrObjectNotFound)
	}
	if maxBytes < 0 {
		maxBytes = 0
	}
	if len(data) > maxBytes {
		data = data[:maxBytes]
	}
	return append([]byte{}, data...), nil
}

func (f *FakeStorageService) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(OpRemove); err != nil {
		return fmt.Errorf("%w: %s: %w", ss.ErrRemoveFailed, name, err)
	}
	if _, ok := f.objects[name]; !ok {
		return fmt.Errorf("%w: %s: %w", ss.ErrRemoveFailed, name, ss.ErrObjectNotFound)
	}
	delete(f.objects, name)
	return nil
}

var _ ss.StorageService = (*FakeStorageService)(nil)
