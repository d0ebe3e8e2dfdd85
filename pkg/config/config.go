// Package config provides unified configuration for vector-view.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. .env file values (read, never exported to the process environment)
//  4. Environment variable overrides (VECTOR_VIEW_ prefix)
//  5. Legacy variable names (CHROMA_DB_PATH, COLLECTION_NAME, ...)
//  6. File reference resolution (_file suffix fields)
//  7. Validation
//
// A loaded Config is never mutated. Settings changes build a new value
// with Apply, and a Holder swaps it in atomically.
package config

import "time"

// Config holds all configuration for vector-view.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Data          DataConfig          `yaml:"data"`
	Database      DatabaseConfig      `yaml:"database"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Session       SessionConfig       `yaml:"session"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`                              // default: "0.0.0.0"
	Port            int           `yaml:"port" validate:"min=1,max=65535"`   // default: 5001
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"min=0"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"min=0"`    // default: 60s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"` // default: 10s
	MaxBodySize     int64         `yaml:"max_body_size" validate:"min=1"`    // default: 1 MiB
	Debug           bool          `yaml:"debug"`
}

// DataConfig selects where the connection registry and the preferences
// are kept.
type DataConfig struct {
	Dir      string         `yaml:"dir"`                                           // default: "/tmp/vector-view"
	Backend  string         `yaml:"backend" validate:"oneof=file memory postgres"` // default: "file"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns" validate:"min=0"`
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// DatabaseConfig names the vector database connected at startup when no
// connection was active.
type DatabaseConfig struct {
	Path           string `yaml:"path"`            // default: "../.chroma"
	Collection     string `yaml:"collection"`      // default: "usage-guides"
	EmbeddingModel string `yaml:"embedding_model"` // default: paraphrase-multilingual-MiniLM-L12-v2
	Compress       bool   `yaml:"compress"`
}

// EmbeddingConfig configures the embedding model loader.
type EmbeddingConfig struct {
	DefaultProvider string        `yaml:"default_provider" validate:"oneof=openai ollama localai gemini"`
	BaseURL         string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey          string        `yaml:"api_key"`
	APIKeyFile      string        `yaml:"api_key_file"`             // _file variant for api_key
	Timeout         time.Duration `yaml:"timeout" validate:"min=0"` // default: 30s
	ProbeOnLoad     bool          `yaml:"probe_on_load"`            // default: true
	Cache           CacheConfig   `yaml:"cache"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // empty keeps the cache in memory
}

// SessionConfig tunes the session manager.
type SessionConfig struct {
	// SearchRoots are probed in order for relative database paths.
	SearchRoots []string `yaml:"search_roots"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type" validate:"oneof=none apikey jwt"` // default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys" validate:"dive"`
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string   `yaml:"key" json:"key"`
	KeyFile     string   `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject     string   `yaml:"subject" json:"subject" validate:"required"`
	ServiceTier string   `yaml:"service_tier" json:"service_tier"`
	Scopes      []string `yaml:"scopes" json:"scopes"`
}

// JWTConfig configures bearer token validation against a JWKS endpoint.
type JWTConfig struct {
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	JWKSURL     string `yaml:"jwks_url" validate:"omitempty,url"`
	UserClaim   string `yaml:"user_claim"`
	ScopesClaim string `yaml:"scopes_claim"`
}

// RateLimitConfig bounds requests per identity. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"min=0"`
}

// MCPConfig controls the MCP tool endpoint.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"`
	Debug    string        `yaml:"debug"` // comma-separated debug categories
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Default values shared with other packages.
const (
	DefaultPort           = 5001
	DefaultDataDir        = "/tmp/vector-view"
	DefaultDBPath         = "../.chroma"
	DefaultCollection     = "usage-guides"
	DefaultEmbeddingModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
)

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            DefaultPort,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodySize:     1 << 20,
		},
		Data: DataConfig{
			Dir:     DefaultDataDir,
			Backend: "file",
			Postgres: PostgresConfig{
				MaxConns:       4,
				MigrateOnStart: true,
			},
		},
		Database: DatabaseConfig{
			Path:           DefaultDBPath,
			Collection:     DefaultCollection,
			EmbeddingModel: DefaultEmbeddingModel,
		},
		Embedding: EmbeddingConfig{
			DefaultProvider: "openai",
			Timeout:         30 * time.Second,
			ProbeOnLoad:     true,
		},
		Auth: AuthConfig{
			Type: "none",
		},
		MCP: MCPConfig{
			Path: "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			LogLevel: "INFO",
		},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Session.SearchRoots = append([]string(nil), c.Session.SearchRoots...)
	out.Auth.APIKeys = make([]APIKeyConfig, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		k.Scopes = append([]string(nil), k.Scopes...)
		out.Auth.APIKeys[i] = k
	}
	if c.Auth.APIKeys == nil {
		out.Auth.APIKeys = nil
	}
	return &out
}
