// Package vectordbtest provides an in-memory vectordb implementation for
// tests. Stores are registered by path; the path itself is never touched.
package vectordbtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb"
)

// Opener serves registered stores.
type Opener struct {
	mu     sync.Mutex
	stores map[string]*Store

	// OpenErr, when set, is returned by Open and Create.
	OpenErr error
	opened  int
}

// Ensure Opener implements vectordb.Opener at compile time.
var _ vectordb.Opener = (*Opener)(nil)

// NewOpener creates an Opener with no stores.
func NewOpener() *Opener {
	return &Opener{stores: make(map[string]*Store)}
}

// AddStore registers an empty store at path.
func (o *Opener) AddStore(path string) *Store {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := &Store{}
	o.stores[path] = s
	return s
}

// Opened returns the number of successful Open and Create calls.
func (o *Opener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

func (o *Opener) Open(_ context.Context, path string) (vectordb.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	s, ok := o.stores[path]
	if !ok {
		return nil, fmt.Errorf("no store at %s", path)
	}
	o.opened++
	return &Client{store: s}, nil
}

func (o *Opener) Create(_ context.Context, path string) (vectordb.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.OpenErr != nil {
		return nil, o.OpenErr
	}
	s, ok := o.stores[path]
	if !ok {
		s = &Store{}
		o.stores[path] = s
	}
	o.opened++
	return &Client{store: s}, nil
}

// Store is one in-memory database.
type Store struct {
	mu    sync.Mutex
	colls []*Collection

	// ListErr, when set, is returned by ListCollections.
	ListErr error
}

// AddCollection adds a collection holding records.
func (s *Store) AddCollection(name string, metadata map[string]string, records ...vectordb.Record) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Collection{name: name, metadata: metadata, records: slices.Clone(records)}
	s.colls = append(s.colls, c)
	return c
}

func (s *Store) find(name string) *Collection {
	for _, c := range s.colls {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Client is an open Store.
type Client struct {
	store  *Store
	closed bool
}

var _ vectordb.Client = (*Client)(nil)

// Closed reports whether Close was called.
func (c *Client) Closed() bool { return c.closed }

func (c *Client) ListCollections(context.Context) ([]vectordb.Collection, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.ListErr != nil {
		return nil, c.store.ListErr
	}
	out := make([]vectordb.Collection, 0, len(c.store.colls))
	for _, col := range c.store.colls {
		out = append(out, col)
	}
	return out, nil
}

func (c *Client) Collection(_ context.Context, name string) (vectordb.Collection, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	col := c.store.find(name)
	if col == nil {
		return nil, fmt.Errorf("%w: %q", vectordb.ErrCollectionNotFound, name)
	}
	return col, nil
}

func (c *Client) CreateCollection(_ context.Context, name string, metadata map[string]string) (vectordb.Collection, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.store.find(name) != nil {
		return nil, fmt.Errorf("%w: %q", vectordb.ErrCollectionExists, name)
	}
	col := &Collection{name: name, metadata: metadata}
	c.store.colls = append(c.store.colls, col)
	return col, nil
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

// Collection keeps records in insertion order.
type Collection struct {
	mu       sync.Mutex
	name     string
	metadata map[string]string
	records  []vectordb.Record

	// CountErr, when set, is returned by Count.
	CountErr error
	// QueryErr, when set, is returned by Query.
	QueryErr error

	queries int
	gets    int
}

var _ vectordb.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.name }
func (c *Collection) ID() string   { return "id-" + c.name }

func (c *Collection) Metadata(context.Context) (map[string]string, error) {
	return c.metadata, nil
}

func (c *Collection) Count(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CountErr != nil {
		return 0, c.CountErr
	}
	return len(c.records), nil
}

// Queries returns the number of Query calls.
func (c *Collection) Queries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries
}

// Gets returns the number of Get calls.
func (c *Collection) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

func (c *Collection) Get(_ context.Context, opts vectordb.GetOptions) ([]vectordb.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if opts.Offset < 0 {
		return nil, vectordb.ErrInvalidOffset
	}

	var out []vectordb.Record
	for _, r := range c.records {
		if !matches(r.Metadata, opts.Where) {
			continue
		}
		if !opts.IncludeEmbeddings {
			r.Embedding = nil
		}
		out = append(out, r)
	}
	if opts.Offset >= len(out) {
		return []vectordb.Record{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Query ranks records by cosine distance.
func (c *Collection) Query(_ context.Context, embedding []float32, n int, where map[string]string) ([]vectordb.Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries++
	if c.QueryErr != nil {
		return nil, c.QueryErr
	}
	if len(embedding) == 0 {
		return nil, errors.New("empty query embedding")
	}

	var out []vectordb.Match
	for _, r := range c.records {
		if !matches(r.Metadata, where) {
			continue
		}
		out = append(out, vectordb.Match{Record: r, Distance: 1 - cosine(embedding, r.Embedding)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if n < len(out) {
		out = out[:n]
	}
	return out, nil
}

func matches(meta, where map[string]string) bool {
	for k, v := range where {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
