package storage

import (
	"context"
	"strings"
)

// Well-known document names.
const (
	DocConnections = "connections"
	DocPreferences = "user_settings"
)

// DocumentStore persists named JSON documents.
//
// Load returns ErrNotFound when the document has never been saved. Save
// replaces the whole document; a reader never observes a partial write.
type DocumentStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Close() error
}

// ValidateName rejects empty names and names that would escape a
// directory-based backend.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return ErrInvalidName
	}
	return nil
}
