// Package chromem adapts github.com/philippgille/chromem-go to the vectordb
// interfaces. A store is a directory holding one subdirectory per
// collection.
package chromem

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb"
)

// errNoEmbedder is returned if chromem ever needs to embed text itself.
// Documents and queries always carry precomputed embeddings.
var errNoEmbedder = errors.New("chromem: text embedding is handled by the embedding model, not the store")

func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// Opener opens chromem-go persistent databases.
type Opener struct {
	// Compress selects gzip-compressed document files.
	Compress bool
}

// Ensure the adapter implements the vectordb interfaces at compile time.
var (
	_ vectordb.Opener     = Opener{}
	_ vectordb.Client     = (*Client)(nil)
	_ vectordb.Collection = (*Collection)(nil)
)

// Open opens the database in an existing directory.
func (o Opener) Open(ctx context.Context, path string) (vectordb.Client, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening database %s: %w", path, vectordb.ErrNotDirectory)
	}
	return o.open(path)
}

// Create opens the database at path, creating the directory when missing.
func (o Opener) Create(ctx context.Context, path string) (vectordb.Client, error) {
	return o.open(path)
}

func (o Opener) open(path string) (*Client, error) {
	db, err := chromemgo.NewPersistentDB(path, o.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	debug.Log("session", "chromem database opened", "path", path, "collections", len(db.ListCollections()))
	return &Client{db: db, path: path, snaps: map[string]cachedSnapshot{}}, nil
}

// Client is an open chromem-go database.
type Client struct {
	db   *chromemgo.DB
	path string

	mu    sync.Mutex
	snaps map[string]cachedSnapshot
}

// cachedSnapshot is a decoded export, valid while the collection still
// holds count documents and nothing was added through this client.
type cachedSnapshot struct {
	count int
	snap  *exportedCollection
}

// Path returns the directory the client was opened on.
func (c *Client) Path() string {
	return c.path
}

// ListCollections returns all collections sorted by name.
func (c *Client) ListCollections(ctx context.Context) ([]vectordb.Collection, error) {
	all := c.db.ListCollections()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]vectordb.Collection, 0, len(names))
	for _, name := range names {
		out = append(out, &Collection{client: c, col: c.db.GetCollection(name, noEmbed)})
	}
	return out, nil
}

// Collection opens the named collection.
func (c *Client) Collection(ctx context.Context, name string) (vectordb.Collection, error) {
	col := c.db.GetCollection(name, noEmbed)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	return &Collection{client: c, col: col}, nil
}

// CreateCollection creates a new collection. An existing name is rejected.
func (c *Client) CreateCollection(ctx context.Context, name string, metadata map[string]string) (vectordb.Collection, error) {
	if c.db.GetCollection(name, noEmbed) != nil {
		return nil, fmt.Errorf("%w: %s", vectordb.ErrCollectionExists, name)
	}
	col, err := c.db.CreateCollection(name, metadata, noEmbed)
	if err != nil {
		return nil, err
	}
	return &Collection{client: c, col: col}, nil
}

// Close releases the client. chromem-go keeps no open file handles between
// calls, so there is nothing to flush.
func (c *Client) Close() error {
	return nil
}

// Collection wraps one chromem-go collection.
type Collection struct {
	client *Client
	col    *chromemgo.Collection
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.col.Name
}

// ID returns the collection identifier, which is also the name of its
// directory inside the store.
func (c *Collection) ID() string {
	return CollectionID(c.col.Name)
}

// CollectionID derives a collection identifier from its name the same way
// chromem-go names collection directories.
func CollectionID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:4])
}

// Count returns the number of documents.
func (c *Collection) Count(ctx context.Context) (int, error) {
	return c.col.Count(), nil
}

// Metadata returns a copy of the collection metadata, never nil.
func (c *Collection) Metadata(ctx context.Context) (map[string]string, error) {
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(snap.Metadata))
	for k, v := range snap.Metadata {
		out[k] = v
	}
	return out, nil
}

// Get returns documents ordered by ID.
func (c *Collection) Get(ctx context.Context, opts vectordb.GetOptions) ([]vectordb.Record, error) {
	if opts.Offset < 0 {
		return nil, vectordb.ErrInvalidOffset
	}
	snap, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(snap.Documents))
	for id, doc := range snap.Documents {
		if matches(doc.Metadata, opts.Where) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if opts.Offset > 0 {
		if opts.Offset >= len(ids) {
			return []vectordb.Record{}, nil
		}
		ids = ids[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}

	out := make([]vectordb.Record, 0, len(ids))
	for _, id := range ids {
		doc := snap.Documents[id]
		rec := vectordb.Record{ID: doc.ID, Document: doc.Content, Metadata: cloneMeta(doc.Metadata)}
		if opts.IncludeEmbeddings {
			rec.Embedding = slices.Clone(doc.Embedding)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Query runs a cosine-similarity search. n is clamped to the collection
// size, and Distance is 1 - similarity so smaller means closer.
func (c *Collection) Query(ctx context.Context, embedding []float32, n int, where map[string]string) ([]vectordb.Match, error) {
	count := c.col.Count()
	if count == 0 || n <= 0 {
		return []vectordb.Match{}, nil
	}
	if n > count {
		n = count
	}
	if len(where) == 0 {
		where = nil
	}

	results, err := c.col.QueryEmbedding(ctx, embedding, n, where, nil)
	if err != nil {
		return nil, err
	}

	out := make([]vectordb.Match, 0, len(results))
	for _, r := range results {
		out = append(out, vectordb.Match{
			Record: vectordb.Record{
				ID:        r.ID,
				Document:  r.Content,
				Metadata:  cloneMeta(r.Metadata),
				Embedding: r.Embedding,
			},
			Distance: 1 - r.Similarity,
		})
	}
	return out, nil
}

// Add stores records with precomputed embeddings.
func (c *Collection) Add(ctx context.Context, records []vectordb.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromemgo.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, chromemgo.Document{
			ID:        r.ID,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
			Content:   r.Document,
		})
	}
	defer c.client.forget(c.col.Name)
	return c.col.AddDocuments(ctx, docs, 1)
}

// exportedDB mirrors the gob layout written by chromem's ExportToWriter.
type exportedDB struct {
	Collections map[string]*exportedCollection
}

type exportedCollection struct {
	Name      string
	Metadata  map[string]string
	Documents map[string]*chromemgo.Document
}

// snapshot returns the decoded export of the collection, reusing the
// client's cached copy while the document count is unchanged.
func (c *Collection) snapshot() (*exportedCollection, error) {
	name := c.col.Name
	count := c.col.Count()

	c.client.mu.Lock()
	cached, ok := c.client.snaps[name]
	c.client.mu.Unlock()
	if ok && cached.count == count {
		return cached.snap, nil
	}

	snap, err := c.export()
	if err != nil {
		return nil, err
	}
	c.client.mu.Lock()
	c.client.snaps[name] = cachedSnapshot{count: count, snap: snap}
	c.client.mu.Unlock()
	debug.Log("session", "collection snapshot refreshed", "collection", name, "documents", count)
	return snap, nil
}

func (c *Client) forget(name string) {
	c.mu.Lock()
	delete(c.snaps, name)
	c.mu.Unlock()
}

// export reads the collection through chromem's export API, the only
// public way to read its metadata and enumerate its documents.
func (c *Collection) export() (*exportedCollection, error) {
	var buf bytes.Buffer
	if err := c.client.db.ExportToWriter(&buf, false, "", c.col.Name); err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", c.col.Name, err)
	}

	var db exportedDB
	if err := gob.NewDecoder(&buf).Decode(&db); err != nil {
		return nil, fmt.Errorf("decoding collection %s: %w", c.col.Name, err)
	}

	snap, ok := db.Collections[c.col.Name]
	if !ok || snap == nil {
		return nil, fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, c.col.Name)
	}
	if snap.Documents == nil {
		snap.Documents = map[string]*chromemgo.Document{}
	}
	return snap, nil
}

func matches(meta, where map[string]string) bool {
	for k, v := range where {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func cloneMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
