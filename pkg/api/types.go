package api

import (
	"encoding/json"
	"strconv"
)

// ConnectionConfig is one named, durable descriptor of a reachable database.
// The ID never changes after creation. IsActive mirrors the registry's
// active pointer.
type ConnectionConfig struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	DBPath         string  `json:"db_path"`
	CollectionName string  `json:"collection_name"`
	EmbeddingModel string  `json:"embedding_model"`
	Description    *string `json:"description"`
	CreatedAt      *string `json:"created_at"`
	LastUsed       *string `json:"last_used"`
	IsActive       bool    `json:"is_active"`
}

// ConnectionInput carries the user-supplied fields of a connection.
type ConnectionInput struct {
	Name           string `json:"name" validate:"required"`
	DBPath         string `json:"db_path" validate:"required"`
	CollectionName string `json:"collection_name" validate:"required"`
	EmbeddingModel string `json:"embedding_model" validate:"required"`
	Description    string `json:"description"`
}

// Config converts the input into a ConnectionConfig without an ID or
// timestamps.
func (in ConnectionInput) Config() ConnectionConfig {
	cfg := ConnectionConfig{
		Name:           in.Name,
		DBPath:         in.DBPath,
		CollectionName: in.CollectionName,
		EmbeddingModel: in.EmbeddingModel,
	}
	if in.Description != "" {
		d := in.Description
		cfg.Description = &d
	}
	return cfg
}

// Status is the connection manager's view of the registry and session.
type Status struct {
	IsConnected        bool               `json:"is_connected"`
	ActiveConnectionID *string            `json:"active_connection_id"`
	ActiveConnection   *ConnectionConfig  `json:"active_connection"`
	TotalConnections   int                `json:"total_connections"`
	Connections        []ConnectionConfig `json:"connections"`
}

// DBStatus reports which session handles are loaded.
type DBStatus struct {
	IsInitialized      bool    `json:"is_initialized"`
	HasClient          bool    `json:"has_client"`
	HasCollection      bool    `json:"has_collection"`
	HasModel           bool    `json:"has_model"`
	Error              *string `json:"error"`
	ActiveConnectionID *string `json:"active_connection_id"`
}

// CollectionRef names a collection inside a database store.
type CollectionRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// DBInfo is directory metadata reported on successful validation.
type DBInfo struct {
	Path   string   `json:"path"`
	Exists bool     `json:"exists"`
	IsDir  bool     `json:"is_dir"`
	Files  []string `json:"files"`
}

// ValidationResult is the outcome of a reachability probe. Invalid input is
// a normal outcome, reported with Valid=false and a message.
type ValidationResult struct {
	Valid            bool            `json:"valid"`
	Message          string          `json:"message"`
	Suggestion       string          `json:"suggestion,omitempty"`
	CollectionsCount *int            `json:"collections_count,omitempty"`
	Collections      []CollectionRef `json:"collections,omitempty"`
	CollectionExists *bool           `json:"collection_exists,omitempty"`
	TargetCollection *string         `json:"target_collection,omitempty"`
	DBInfo           *DBInfo         `json:"db_info,omitempty"`
}

// Invalid returns a failed ValidationResult with the given message.
func Invalid(message string) ValidationResult {
	return ValidationResult{Valid: false, Message: message}
}

// DocumentCount is a collection size that may be unknown. It encodes as a
// JSON number, or as the string "unknown".
type DocumentCount struct {
	N     int
	Known bool
}

// KnownCount returns a DocumentCount holding n.
func KnownCount(n int) DocumentCount {
	return DocumentCount{N: n, Known: true}
}

// String implements fmt.Stringer.
func (c DocumentCount) String() string {
	if !c.Known {
		return "unknown"
	}
	return strconv.Itoa(c.N)
}

// MarshalJSON implements json.Marshaler.
func (c DocumentCount) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return json.Marshal("unknown")
	}
	return json.Marshal(c.N)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *DocumentCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = KnownCount(n)
		return nil
	}
	*c = DocumentCount{}
	return nil
}

// CollectionInfo describes one collection of the active database.
type CollectionInfo struct {
	Name          string            `json:"name"`
	ID            string            `json:"id"`
	Metadata      map[string]string `json:"metadata"`
	DocumentCount DocumentCount     `json:"document_count"`
}

// Chunk is one stored document.
type Chunk struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
}

// ChunkPage is one page of chunks plus pagination fields.
type ChunkPage struct {
	Chunks     []Chunk `json:"chunks"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalCount int     `json:"total_count"`
	TotalPages int     `json:"total_pages"`
}

// SearchRequest is a semantic search query.
type SearchRequest struct {
	Query        string `json:"query"`
	SchemaFilter string `json:"schema_filter,omitempty"`
	TopK         int    `json:"top_k,omitempty"`
}

// SearchResult is one nearest-neighbor match.
type SearchResult struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Distance float32           `json:"distance"`
}

// SearchResponse echoes the query and lists matches, nearest first.
type SearchResponse struct {
	Query        string         `json:"query"`
	SchemaFilter *string        `json:"schema_filter"`
	TopK         int            `json:"top_k"`
	Results      []SearchResult `json:"results"`
}

// VectorPoint is one embedding projected onto its first two dimensions.
type VectorPoint struct {
	ID              string            `json:"id"`
	X               float32           `json:"x"`
	Y               float32           `json:"y"`
	FullVector      []float32         `json:"full_vector"`
	Metadata        map[string]string `json:"metadata"`
	DocumentPreview string            `json:"document_preview"`
}

// VectorsResponse lists points for the 2D view.
type VectorsResponse struct {
	Vectors      []VectorPoint `json:"vectors"`
	TotalCount   int           `json:"total_count"`
	SchemaFilter *string       `json:"schema_filter"`
}

// OptionalString returns nil for an empty string and a pointer to s
// otherwise.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
