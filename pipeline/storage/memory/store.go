// Package memory is an in-process object store used by tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/gear6io/wwi-etl/pipeline/storage"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

var MemoryStorageReadFailed = errors.MustNewCode("memory.read_failed")

// Store keeps objects in a map guarded by a RWMutex
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	puts    int
}

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[k]
	if !ok {
		return nil, errors.New(errors.PipelineMissingSource, "object not found", nil).AddContext("key", k)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put buffers r fully before storing so a failed read never replaces key
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	k, err := storage.CleanKey(key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to read object body", err).AddContext("key", k)
	}
	if size >= 0 && int64(len(data)) != size {
		return errors.Newf(errors.PipelineWriteFailed, "short write: %d of %d bytes", len(data), size).AddContext("key", k)
	}
	if err := ctx.Err(); err != nil {
		return errors.New(errors.PipelineWriteFailed, "put cancelled", err).AddContext("key", k)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[k] = data
	s.puts++
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// WriteFile stores data under key without size checks
func (s *Store) WriteFile(key string, data []byte) error {
	return s.Put(context.Background(), key, bytes.NewReader(data), int64(len(data)))
}

// ReadFile returns a copy of the object stored under key
func (s *Store) ReadFile(key string) ([]byte, error) {
	rc, err := s.Open(context.Background(), key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.New(MemoryStorageReadFailed, "failed to read object", err).AddContext("key", key)
	}
	return data, nil
}

// Puts reports how many successful Put calls the store has seen
func (s *Store) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
