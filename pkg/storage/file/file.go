// Package file provides a directory-backed implementation of
// storage.DocumentStore. Each document is stored as <dir>/<name>.json and
// replaced atomically through a temporary file and rename.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/NikolayKlyatishev/vector-view/pkg/storage"
)

// DefaultDir is used when no directory is configured.
const DefaultDir = "/tmp/vector-view"

// Store is a directory-backed DocumentStore.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Ensure Store implements storage.DocumentStore at compile time.
var _ storage.DocumentStore = (*Store)(nil)

// New creates the directory if needed and returns a store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory holding the documents.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads the named document.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Save writes data to a temporary file in the same directory and renames it
// over the document.
func (s *Store) Save(_ context.Context, name string, data []byte) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
