// Package vectordb defines the narrow interface vector-view needs from an
// embedded vector database: open a store by path, list and open collections,
// fetch documents page by page and run nearest-neighbor queries.
//
// Implementations live in subpackages. The chromem subpackage adapts
// github.com/philippgille/chromem-go.
package vectordb

import (
	"context"
	"errors"
)

// Sentinel errors returned by implementations.
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrNotDirectory       = errors.New("path is not a directory")
	ErrInvalidOffset      = errors.New("offset must not be negative")
)

// Opener opens database stores addressed by filesystem path.
type Opener interface {
	// Open opens an existing store directory. It never creates the path.
	Open(ctx context.Context, path string) (Client, error)

	// Create opens the store at path, creating the directory if needed.
	Create(ctx context.Context, path string) (Client, error)
}

// Client is an open database store.
type Client interface {
	ListCollections(ctx context.Context) ([]Collection, error)
	Collection(ctx context.Context, name string) (Collection, error)
	CreateCollection(ctx context.Context, name string, metadata map[string]string) (Collection, error)
	Close() error
}

// Collection is one named set of documents with embeddings.
type Collection interface {
	Name() string
	ID() string
	Metadata(ctx context.Context) (map[string]string, error)
	Count(ctx context.Context) (int, error)

	// Get returns documents in a stable order, skipping Offset entries and
	// returning at most Limit (0 means no limit). A negative Offset fails
	// with ErrInvalidOffset.
	Get(ctx context.Context, opts GetOptions) ([]Record, error)

	// Query returns up to n nearest neighbors of embedding, nearest first.
	// Where restricts results to documents whose metadata matches every
	// entry.
	Query(ctx context.Context, embedding []float32, n int, where map[string]string) ([]Match, error)
}

// GetOptions controls Collection.Get.
type GetOptions struct {
	Limit             int
	Offset            int
	Where             map[string]string
	IncludeEmbeddings bool
}

// Record is one stored document.
type Record struct {
	ID        string
	Document  string
	Metadata  map[string]string
	Embedding []float32
}

// Match is a query result. Distance grows as similarity falls.
type Match struct {
	Record
	Distance float32
}
