package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that locate the config sources.
const (
	EnvConfigFile = "VECTOR_VIEW_CONFIG"
	EnvDotEnvFile = "VECTOR_VIEW_ENV_FILE"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, VECTOR_VIEW_CONFIG env, ./config.yaml, /etc/vector-view/config.yaml)
//  3. Environment overrides, read from the process environment with .env
//     values as a fallback
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath)
	return cfg, err
}

// LoadWithPath is Load that also reports the config file used, or "" when
// none was found.
func LoadWithPath(configPath string) (*Config, string, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, "", fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	dotenv, err := readDotEnv()
	if err != nil {
		return nil, "", fmt.Errorf("reading .env file: %w", err)
	}
	applyEnvOverrides(&cfg, envLookup(dotenv))

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, "", fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("config validation: %w", err)
	}

	return &cfg, filePath, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. VECTOR_VIEW_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/vector-view/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		return envPath
	}
	for _, path := range []string{"config.yaml", "/etc/vector-view/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// readDotEnv parses the .env file named by VECTOR_VIEW_ENV_FILE, or ./.env.
// A missing default file is not an error; a missing explicit one is.
func readDotEnv() (map[string]string, error) {
	path := os.Getenv(EnvDotEnvFile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return values, nil
}

// envLookup reads the process environment first and falls back to dotenv.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
}

// applyEnvOverrides maps environment variables to config fields. Legacy
// names are applied first so the VECTOR_VIEW_ names win.
func applyEnvOverrides(cfg *Config, env func(string) string) {
	// Legacy names from the Flask release.
	if v := env("CHROMA_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := env("COLLECTION_NAME"); v != "" {
		cfg.Database.Collection = v
	}
	if v := env("EMBEDDING_MODEL"); v != "" {
		cfg.Database.EmbeddingModel = v
	}
	if v := env("FLASK_HOST"); v != "" {
		cfg.Server.Host = v
	}
	setInt(&cfg.Server.Port, env("FLASK_PORT"))
	setBool(&cfg.Server.Debug, env("FLASK_DEBUG"))

	if v := env("VECTOR_VIEW_HOST"); v != "" {
		cfg.Server.Host = v
	}
	setInt(&cfg.Server.Port, env("VECTOR_VIEW_PORT"))
	setBool(&cfg.Server.Debug, env("VECTOR_VIEW_SERVER_DEBUG"))

	if v := env("VECTOR_VIEW_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := env("VECTOR_VIEW_DATA_BACKEND"); v != "" {
		cfg.Data.Backend = v
	}
	if v := env("VECTOR_VIEW_POSTGRES_DSN"); v != "" {
		cfg.Data.Postgres.DSN = v
	}

	if v := env("VECTOR_VIEW_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := env("VECTOR_VIEW_COLLECTION"); v != "" {
		cfg.Database.Collection = v
	}
	if v := env("VECTOR_VIEW_EMBEDDING_MODEL"); v != "" {
		cfg.Database.EmbeddingModel = v
	}

	if v := env("VECTOR_VIEW_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.DefaultProvider = v
	}
	if v := env("VECTOR_VIEW_EMBEDDING_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := env("VECTOR_VIEW_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	setBool(&cfg.Embedding.Cache.Enabled, env("VECTOR_VIEW_EMBEDDING_CACHE"))

	if v := env("VECTOR_VIEW_SEARCH_ROOTS"); v != "" {
		cfg.Session.SearchRoots = filepath.SplitList(v)
	}

	if v := env("VECTOR_VIEW_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	// VECTOR_VIEW_API_KEYS: JSON array of API key configs.
	if v := env("VECTOR_VIEW_API_KEYS"); v != "" {
		if keys, err := parseAPIKeysJSON(v); err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}
	setInt(&cfg.Auth.RateLimit.RequestsPerMinute, env("VECTOR_VIEW_RATE_LIMIT"))

	setBool(&cfg.MCP.Enabled, env("VECTOR_VIEW_MCP_ENABLED"))
	setBool(&cfg.Observability.Metrics.Enabled, env("VECTOR_VIEW_METRICS_ENABLED"))
}

func setInt(dst *int, v string) {
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setBool(dst *bool, v string) {
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields when those are empty.
func resolveFileReferences(cfg *Config) error {
	if cfg.Embedding.APIKeyFile != "" && cfg.Embedding.APIKey == "" {
		val, err := readSecretFile(cfg.Embedding.APIKeyFile)
		if err != nil {
			return fmt.Errorf("embedding.api_key_file: %w", err)
		}
		cfg.Embedding.APIKey = val
	}

	if cfg.Data.Postgres.DSNFile != "" && cfg.Data.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Data.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("data.postgres.dsn_file: %w", err)
		}
		cfg.Data.Postgres.DSN = val
	}

	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		if k.KeyFile != "" && k.Key == "" {
			val, err := readSecretFile(k.KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			k.Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
