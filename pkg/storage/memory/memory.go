// Package memory provides an in-memory implementation of
// storage.DocumentStore for tests and throwaway deployments. Documents are
// lost when the process restarts.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/NikolayKlyatishev/vector-view/pkg/storage"
)

// Store is an in-memory DocumentStore.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte

	// saves counts successful Save calls, for tests.
	saves int
}

// Ensure Store implements storage.DocumentStore at compile time.
var _ storage.DocumentStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{docs: make(map[string][]byte)}
}

// Load returns a copy of the named document.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return bytes.Clone(data), nil
}

// Save stores a copy of data under name.
func (s *Store) Save(_ context.Context, name string, data []byte) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[name] = bytes.Clone(data)
	s.saves++
	return nil
}

// Saves returns the number of successful Save calls.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
