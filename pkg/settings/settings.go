// Package settings keeps the user preferences document: the last used
// database path, collection and model, a bounded list of recent paths and a
// small map of free-form preferences.
//
// Every setter persists the whole document immediately. A write failure is
// logged and the in-memory value stays authoritative.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/storage"
)

const (
	// DefaultModel is the embedding model suggested before any connection
	// has been made.
	DefaultModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"

	// MaxRecentPaths bounds the recent paths list.
	MaxRecentPaths = 10

	PrefAutoConnect  = "auto_connect"
	PrefRememberPath = "remember_path"
)

// Preferences is the persisted document.
type Preferences struct {
	LastDBPath     string         `json:"last_db_path"`
	LastCollection string         `json:"last_collection"`
	LastModel      string         `json:"last_model"`
	RecentPaths    []string       `json:"recent_paths"`
	Preferences    map[string]any `json:"preferences"`
}

// Defaults returns the document used when nothing has been saved yet.
func Defaults() Preferences {
	return Preferences{
		LastModel:   DefaultModel,
		RecentPaths: []string{},
		Preferences: map[string]any{
			PrefAutoConnect:  false,
			PrefRememberPath: true,
		},
	}
}

func (p Preferences) clone() Preferences {
	p.RecentPaths = slices.Clone(p.RecentPaths)
	if p.RecentPaths == nil {
		p.RecentPaths = []string{}
	}
	p.Preferences = maps.Clone(p.Preferences)
	if p.Preferences == nil {
		p.Preferences = map[string]any{}
	}
	return p
}

// Patch lists fields to overwrite in Update. Nil fields are left alone.
type Patch struct {
	LastDBPath     *string        `json:"last_db_path,omitempty"`
	LastCollection *string        `json:"last_collection,omitempty"`
	LastModel      *string        `json:"last_model,omitempty"`
	RecentPaths    []string       `json:"recent_paths,omitempty"`
	Preferences    map[string]any `json:"preferences,omitempty"`
}

// Store owns the preferences document.
type Store struct {
	docs   storage.DocumentStore
	logger *slog.Logger

	// saveMu orders mutations with their writes so the last snapshot saved
	// is always the current one.
	saveMu sync.Mutex

	mu    sync.RWMutex
	prefs Preferences
}

// Load reads the document from docs. A missing or unparseable document
// yields the defaults.
func Load(ctx context.Context, docs storage.DocumentStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{docs: docs, logger: logger, prefs: Defaults()}

	data, err := docs.Load(ctx, storage.DocPreferences)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		debug.Log("storage", "preferences document absent, using defaults")
	case err != nil:
		logger.Warn("loading preferences failed, using defaults", "error", err)
	default:
		var p Preferences
		if err := json.Unmarshal(data, &p); err != nil {
			logger.Warn("preferences document unparseable, using defaults", "error", err)
			break
		}
		s.prefs = p.clone()
	}
	return s
}

// Get returns a copy of the current document.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.clone()
}

// RecentPaths returns the recent paths, most recent first.
func (s *Store) RecentPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.prefs.RecentPaths)
}

// Preference returns the value stored under key.
func (s *Store) Preference(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.prefs.Preferences[key]
	return v, ok
}

// BoolPreference returns the boolean stored under key, or def when the key
// is missing or not a boolean.
func (s *Store) BoolPreference(key string, def bool) bool {
	v, ok := s.Preference(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// SetLastDBPath records path as the last used database path and moves it
// to the front of the recent paths list.
func (s *Store) SetLastDBPath(ctx context.Context, path string) {
	s.mutate(ctx, func(p *Preferences) {
		p.LastDBPath = path
		p.RecentPaths = pushRecent(p.RecentPaths, path)
	})
}

// SetLastCollection records the last used collection.
func (s *Store) SetLastCollection(ctx context.Context, collection string) {
	s.mutate(ctx, func(p *Preferences) { p.LastCollection = collection })
}

// SetLastModel records the last used embedding model.
func (s *Store) SetLastModel(ctx context.Context, model string) {
	s.mutate(ctx, func(p *Preferences) { p.LastModel = model })
}

// SetPreference stores value under key.
func (s *Store) SetPreference(ctx context.Context, key string, value any) {
	s.mutate(ctx, func(p *Preferences) { p.Preferences[key] = value })
}

// Update applies patch. Preferences entries are merged key by key.
func (s *Store) Update(ctx context.Context, patch Patch) {
	s.mutate(ctx, func(p *Preferences) {
		if patch.LastDBPath != nil {
			p.LastDBPath = *patch.LastDBPath
		}
		if patch.LastCollection != nil {
			p.LastCollection = *patch.LastCollection
		}
		if patch.LastModel != nil {
			p.LastModel = *patch.LastModel
		}
		if patch.RecentPaths != nil {
			var recent []string
			for i := len(patch.RecentPaths) - 1; i >= 0; i-- {
				recent = pushRecent(recent, patch.RecentPaths[i])
			}
			p.RecentPaths = recent
		}
		maps.Copy(p.Preferences, patch.Preferences)
	})
}

func (s *Store) mutate(ctx context.Context, fn func(p *Preferences)) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	fn(&s.prefs)
	snapshot := s.prefs.clone()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
}

func (s *Store) persist(ctx context.Context, p Preferences) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		s.logger.Error("encoding preferences failed", "error", err)
		return
	}
	if err := s.docs.Save(ctx, storage.DocPreferences, data); err != nil {
		s.logger.Error("saving preferences failed", "error", err)
		return
	}
	debug.Log("storage", "preferences saved", "recent_paths", len(p.RecentPaths))
}

// pushRecent moves path to the front, drops duplicates and caps the list.
func pushRecent(recent []string, path string) []string {
	out := make([]string, 0, min(len(recent)+1, MaxRecentPaths))
	out = append(out, path)
	for _, p := range recent {
		if p == path {
			continue
		}
		if len(out) == MaxRecentPaths {
			break
		}
		out = append(out, p)
	}
	return out
}
