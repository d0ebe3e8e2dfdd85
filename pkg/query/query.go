package query

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/observability"
	"github.com/NikolayKlyatishev/vector-view/pkg/session"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb"
)

// Defaults applied by callers that omit a value.
const (
	DefaultTopK        = 5
	DefaultPerPage     = 20
	DefaultVectorLimit = 100

	// PreviewLength is the number of characters kept in a document preview.
	PreviewLength = 100
)

// SchemaKey is the metadata key matched by schema filters.
const SchemaKey = "schema"

// SessionSource provides the current session handles.
type SessionSource interface {
	Handles() (session.Handles, bool)
	InitializationError() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service is the query façade.
type Service struct {
	source SessionSource
	opener vectordb.Opener
	logger *slog.Logger
}

// New creates a Service reading handles from source. The opener is used by
// ValidateFolder only.
func New(source SessionSource, opener vectordb.Opener, opts ...Option) *Service {
	s := &Service{source: source, opener: opener, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// handles borrows the session handles or returns the unavailable error.
func (s *Service) handles() (session.Handles, error) {
	h, ok := s.source.Handles()
	if !ok {
		return session.Handles{}, api.NewUnavailableError(s.source.InitializationError())
	}
	return h, nil
}

func observe(op string, start time.Time, err error) {
	observability.QueryDuration.WithLabelValues(op, observability.StatusLabel(err)).
		Observe(time.Since(start).Seconds())
}

// ListCollections describes every collection of the active database. A
// collection whose size cannot be read is reported with an unknown count.
func (s *Service) ListCollections(ctx context.Context) (_ []api.CollectionInfo, err error) {
	start := time.Now()
	defer func() { observe("list_collections", start, err) }()

	h, err := s.handles()
	if err != nil {
		return nil, err
	}

	cols, err := h.Client.ListCollections(ctx)
	if err != nil {
		return nil, api.NewUpstreamError("listing collections", err)
	}

	out := make([]api.CollectionInfo, 0, len(cols))
	for _, c := range cols {
		info := api.CollectionInfo{Name: c.Name(), ID: c.ID(), Metadata: map[string]string{}}
		if meta, err := c.Metadata(ctx); err == nil && meta != nil {
			info.Metadata = meta
		}
		if n, err := c.Count(ctx); err == nil {
			info.DocumentCount = api.KnownCount(n)
		} else {
			s.logger.Warn("counting collection failed", "collection", c.Name(), "error", err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Chunks returns page of the active collection, perPage documents per page.
// Pages start at 1.
func (s *Service) Chunks(ctx context.Context, page, perPage int) (_ api.ChunkPage, err error) {
	start := time.Now()
	defer func() { observe("chunks", start, err) }()

	if page < 1 {
		return api.ChunkPage{}, api.NewInvalidRequestError("page", "page must be at least 1")
	}
	if perPage < 1 {
		return api.ChunkPage{}, api.NewInvalidRequestError("per_page", "per_page must be at least 1")
	}

	h, err := s.handles()
	if err != nil {
		return api.ChunkPage{}, err
	}

	total, err := h.Collection.Count(ctx)
	if err != nil {
		return api.ChunkPage{}, api.NewUpstreamError("counting documents", err)
	}

	// An offset that does not fit in an int lies past any collection.
	var recs []vectordb.Record
	if page-1 <= math.MaxInt/perPage {
		recs, err = h.Collection.Get(ctx, vectordb.GetOptions{
			Limit:  perPage,
			Offset: (page - 1) * perPage,
		})
		if err != nil {
			return api.ChunkPage{}, api.NewUpstreamError("fetching chunks", err)
		}
	}

	chunks := make([]api.Chunk, 0, len(recs))
	for _, r := range recs {
		chunks = append(chunks, api.Chunk{ID: r.ID, Document: r.Document, Metadata: nonNil(r.Metadata)})
	}

	return api.ChunkPage{
		Chunks:     chunks,
		Page:       page,
		PerPage:    perPage,
		TotalCount: total,
		TotalPages: totalPages(total, perPage),
	}, nil
}

func totalPages(total, perPage int) int {
	n := total / perPage
	if total%perPage != 0 {
		n++
	}
	return n
}

// Search embeds the query with the active model and returns the nearest
// documents in the index's order. An empty query is rejected before the
// model or the index is called. A zero TopK means DefaultTopK.
func (s *Service) Search(ctx context.Context, req api.SearchRequest) (_ api.SearchResponse, err error) {
	start := time.Now()
	defer func() { observe("search", start, err) }()

	if strings.TrimSpace(req.Query) == "" {
		return api.SearchResponse{}, api.NewInvalidRequestError("query", "query must not be empty")
	}
	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 1 {
		return api.SearchResponse{}, api.NewInvalidRequestError("top_k", "top_k must be at least 1")
	}

	h, err := s.handles()
	if err != nil {
		return api.SearchResponse{}, err
	}

	vecs, err := h.Model.Encode(ctx, []string{req.Query}, true)
	if err != nil {
		return api.SearchResponse{}, api.NewUpstreamError("encoding query", err)
	}
	if len(vecs) != 1 {
		return api.SearchResponse{}, api.NewUpstreamError("encoding query", fmt.Errorf("model returned %d vectors for 1 text", len(vecs)))
	}

	matches, err := h.Collection.Query(ctx, vecs[0], topK, schemaWhere(req.SchemaFilter))
	if err != nil {
		return api.SearchResponse{}, api.NewUpstreamError("querying collection", err)
	}

	results := make([]api.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, api.SearchResult{
			ID:       m.ID,
			Document: m.Document,
			Metadata: nonNil(m.Metadata),
			Distance: m.Distance,
		})
	}

	debug.Log("query", "search", "query", debug.Truncate(req.Query, 80),
		"schema", req.SchemaFilter, "top_k", topK, "results", len(results))

	return api.SearchResponse{
		Query:        req.Query,
		SchemaFilter: api.OptionalString(req.SchemaFilter),
		TopK:         topK,
		Results:      results,
	}, nil
}

// Vectors returns up to limit embeddings projected onto their first two
// dimensions. Entries with fewer than two dimensions are skipped.
func (s *Service) Vectors(ctx context.Context, limit int, schema string) (_ api.VectorsResponse, err error) {
	start := time.Now()
	defer func() { observe("vectors", start, err) }()

	if limit < 1 {
		return api.VectorsResponse{}, api.NewInvalidRequestError("limit", "limit must be at least 1")
	}

	h, err := s.handles()
	if err != nil {
		return api.VectorsResponse{}, err
	}

	recs, err := h.Collection.Get(ctx, vectordb.GetOptions{
		Limit:             limit,
		Where:             schemaWhere(schema),
		IncludeEmbeddings: true,
	})
	if err != nil {
		return api.VectorsResponse{}, api.NewUpstreamError("fetching vectors", err)
	}

	points := make([]api.VectorPoint, 0, len(recs))
	for _, r := range recs {
		if len(r.Embedding) < 2 {
			continue
		}
		points = append(points, api.VectorPoint{
			ID:              r.ID,
			X:               r.Embedding[0],
			Y:               r.Embedding[1],
			FullVector:      r.Embedding,
			Metadata:        nonNil(r.Metadata),
			DocumentPreview: Preview(r.Document),
		})
	}

	return api.VectorsResponse{
		Vectors:      points,
		TotalCount:   len(points),
		SchemaFilter: api.OptionalString(schema),
	}, nil
}

// ValidateFolder checks that path is a directory holding a readable store.
// Unlike connection validation, relative paths are not resolved.
func (s *Service) ValidateFolder(ctx context.Context, path string) api.ValidationResult {
	res := vectordb.Inspect(ctx, s.opener, strings.TrimSpace(path), "")
	res.CollectionExists = nil
	res.TargetCollection = nil
	res.DBInfo = nil
	return res
}

// Preview returns the first PreviewLength characters of doc, followed by
// "..." when doc is longer.
func Preview(doc string) string {
	if utf8.RuneCountInString(doc) <= PreviewLength {
		return doc
	}
	runes := []rune(doc)
	return string(runes[:PreviewLength]) + "..."
}

func schemaWhere(schema string) map[string]string {
	if schema == "" {
		return nil
	}
	return map[string]string{SchemaKey: schema}
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
