package api

import (
	"testing"
	"time"
)

func TestNewConnectionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewConnectionID()
		if len(id) != 36 {
			t.Fatalf("len(id) = %d, want 36", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestValidateConnectionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{NewConnectionID(), true},
		{"legacy-id", true},
		{"", false},
		{"../etc", false},
		{`a\b`, false},
	}
	for _, tt := range tests {
		if got := ValidateConnectionID(tt.id); got != tt.want {
			t.Errorf("ValidateConnectionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	if got := Timestamp(ts); got != "2025-03-01T12:30:00Z" {
		t.Errorf("Timestamp() = %q, want %q", got, "2025-03-01T12:30:00Z")
	}
}
