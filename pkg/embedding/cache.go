package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dgraph-io/badger/v4"
)

// Cache stores raw (unnormalized) vectors by key.
type Cache interface {
	Get(key string) ([]float32, bool)
	Put(key string, v []float32)
}

// CacheKey derives the cache key for text encoded by provider/model.
func CacheKey(provider, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return provider + "/" + model + "/" + hex.EncodeToString(sum[:])
}

// BadgerCache is a Cache backed by a badger key-value store.
type BadgerCache struct {
	db *badger.DB
}

// Ensure BadgerCache implements Cache at compile time.
var _ Cache = (*BadgerCache)(nil)

// OpenBadgerCache opens a cache in dir. An empty dir keeps the cache in
// memory for the life of the process.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get returns the cached vector for key.
func (c *BadgerCache) Get(key string) ([]float32, bool) {
	var out []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := decodeVector(val)
			out = v
			return err
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("embedding cache read failed", "error", err)
		}
		return nil, false
	}
	return out, true
}

// Put stores v under key. Failures are logged; the cache is best effort.
func (c *BadgerCache) Put(key string, v []float32) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encodeVector(v))
	})
	if err != nil {
		slog.Warn("embedding cache write failed", "error", err)
	}
}

// Close closes the underlying store.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector of %d bytes", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
