package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"doctree/internal/domain"
	"doctree/internal/domain/services"
)

// MemoryStore is an in-memory blob store for tests and memory-mode servers.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Deleted records refs passed to Delete, so tests can assert that a
	// cascade attempted the blob delete.
	Deleted []string

	// FailPuts forces Put to fail, simulating an unavailable blob store.
	FailPuts bool

	// FailDeletes forces Delete to fail.
	FailDeletes bool
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores content under a fresh ref.
func (s *MemoryStore) Put(ctx context.Context, content io.Reader, size int64, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPuts {
		return "", fmt.Errorf("%w: put rejected", domain.ErrBlobUnavailable)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}

	ref := uuid.NewString()
	s.objects[ref] = data
	return ref, nil
}

// Get streams content back by ref.
func (s *MemoryStore) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[ref]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", ref, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes content; missing refs are fine.
func (s *MemoryStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDeletes {
		return fmt.Errorf("%w: delete rejected", domain.ErrBlobUnavailable)
	}

	delete(s.objects, ref)
	s.Deleted = append(s.Deleted, ref)
	return nil
}

// Len reports how many blobs are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

var _ services.BlobStore = (*MemoryStore)(nil)
