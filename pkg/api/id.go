package api

import (
	"time"

	"github.com/google/uuid"
)

// NewConnectionID returns a fresh connection identifier.
func NewConnectionID() string {
	return uuid.NewString()
}

// ValidateConnectionID reports whether id is a well-formed connection
// identifier. Registries written by older releases may contain arbitrary
// non-empty IDs, so only emptiness and path separators are rejected.
func ValidateConnectionID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r == '/' || r == '\\' {
			return false
		}
	}
	return true
}

// Timestamp formats t the way registry timestamps are stored.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
