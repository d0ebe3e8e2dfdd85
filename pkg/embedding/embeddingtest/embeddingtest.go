// Package embeddingtest provides deterministic embedding models for tests
// and demos.
package embeddingtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/NikolayKlyatishev/vector-view/pkg/embedding"
)

// DefaultDim is the dimension of vectors produced by Model.
const DefaultDim = 8

// HashVector derives a stable vector of dim components from text. Equal
// texts always map to equal vectors.
func HashVector(text string, dim int) []float32 {
	out := make([]float32, dim)
	for i := range out {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, text)
		out[i] = float32(h.Sum32()%2000)/1000 - 1
	}
	return out
}

// Model embeds text with HashVector.
type Model struct {
	ID  string
	Dim int

	// Err, when set, is returned by Encode.
	Err error

	mu    sync.Mutex
	calls int
}

var _ embedding.Model = (*Model)(nil)

func (m *Model) Name() string { return m.ID }

// Calls returns the number of Encode calls.
func (m *Model) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Model) Encode(_ context.Context, texts []string, normalize bool) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	dim := m.Dim
	if dim == 0 {
		dim = DefaultDim
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := HashVector(t, dim)
		if normalize {
			v = embedding.Normalize(v)
		}
		out[i] = v
	}
	return out, nil
}

// Loader hands out Models. Identifiers listed in Fail are rejected.
type Loader struct {
	Fail map[string]error

	mu     sync.Mutex
	models []*Model
}

var _ embedding.Loader = (*Loader)(nil)

func (l *Loader) Load(_ context.Context, identifier string) (embedding.Model, error) {
	if err, ok := l.Fail[identifier]; ok {
		return nil, err
	}
	m := &Model{ID: identifier}
	l.mu.Lock()
	l.models = append(l.models, m)
	l.mu.Unlock()
	return m, nil
}

// Loaded returns the models handed out so far.
func (l *Loader) Loaded() []*Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Model(nil), l.models...)
}
