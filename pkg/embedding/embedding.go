package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/observability"
)

// Provider names accepted in model identifiers.
const (
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderLocalAI = "localai"
	ProviderGemini  = "gemini"
)

// Providers lists every supported provider name.
var Providers = []string{ProviderOpenAI, ProviderOllama, ProviderLocalAI, ProviderGemini}

// ErrUnknownProvider is returned for identifiers naming an unsupported provider.
var ErrUnknownProvider = errors.New("unknown embedding provider")

// Model encodes text into fixed-dimension vectors.
type Model interface {
	// Name returns the identifier the model was loaded with.
	Name() string

	// Encode returns one vector per text, in order. With normalize set, each
	// vector has unit L2 length.
	Encode(ctx context.Context, texts []string, normalize bool) ([][]float32, error)
}

// Loader resolves model identifiers.
type Loader interface {
	Load(ctx context.Context, identifier string) (Model, error)
}

// backend is a provider-specific batch embedding call.
type backend interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures a ProviderLoader.
type Config struct {
	// DefaultProvider is used for bare identifiers. Defaults to openai.
	DefaultProvider string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is sent to providers that need one.
	APIKey string

	// Timeout bounds each provider call. Zero means no timeout.
	Timeout time.Duration

	// ProbeOnLoad makes Load embed a short text so an unreachable or
	// unknown model fails at connect time instead of at first search.
	ProbeOnLoad bool

	// Cache, when set, stores encoded vectors.
	Cache Cache
}

// ParseIdentifier splits identifier into provider and model name. A prefix
// is only treated as a provider when it is a known provider name, so
// Ollama-style tags like "nomic-embed-text:latest" stay intact.
func ParseIdentifier(identifier, defaultProvider string) (provider, model string, err error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", "", errors.New("embedding model identifier is empty")
	}
	if defaultProvider == "" {
		defaultProvider = ProviderOpenAI
	}

	if prefix, rest, ok := strings.Cut(identifier, ":"); ok {
		for _, p := range Providers {
			if strings.EqualFold(prefix, p) {
				if rest == "" {
					return "", "", fmt.Errorf("embedding model identifier %q has no model name", identifier)
				}
				return p, rest, nil
			}
		}
	}
	return strings.ToLower(defaultProvider), identifier, nil
}

// ProviderLoader builds models for the supported providers.
type ProviderLoader struct {
	cfg        Config
	httpClient *http.Client

	// newGemini is swapped in tests.
	newGemini func(ctx context.Context, apiKey, model string) (backend, error)
}

// Ensure ProviderLoader implements Loader at compile time.
var _ Loader = (*ProviderLoader)(nil)

// NewLoader creates a loader with the given configuration.
func NewLoader(cfg Config) *ProviderLoader {
	return &ProviderLoader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		newGemini:  newGeminiBackend,
	}
}

// Load resolves identifier to a model.
func (l *ProviderLoader) Load(ctx context.Context, identifier string) (Model, error) {
	provider, name, err := ParseIdentifier(identifier, l.cfg.DefaultProvider)
	if err != nil {
		return nil, err
	}

	var b backend
	switch provider {
	case ProviderOpenAI:
		b = NewOpenAIClient(l.cfg.BaseURL, name, l.cfg.APIKey, l.httpClient)
	case ProviderOllama:
		b = newOllamaBackend(l.cfg.BaseURL, name)
	case ProviderLocalAI:
		b = newLocalAIBackend(l.cfg.BaseURL, l.cfg.APIKey, name)
	case ProviderGemini:
		b, err = l.newGemini(ctx, l.cfg.APIKey, name)
		if err != nil {
			return nil, fmt.Errorf("loading model %q: %w", identifier, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	m := &model{
		identifier: identifier,
		provider:   provider,
		name:       name,
		backend:    b,
		cache:      l.cfg.Cache,
		timeout:    l.cfg.Timeout,
	}

	if l.cfg.ProbeOnLoad {
		if _, err := m.call(ctx, []string{"probe"}); err != nil {
			return nil, fmt.Errorf("loading model %q: %w", identifier, err)
		}
	}

	debug.Log("embedding", "model loaded", "provider", provider, "model", name)
	return m, nil
}

// model wraps a backend with caching, normalization and metrics.
type model struct {
	identifier string
	provider   string
	name       string
	backend    backend
	cache      Cache
	timeout    time.Duration
}

func (m *model) Name() string { return m.identifier }

func (m *model) Encode(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if m.cache != nil {
			if v, ok := m.cache.Get(CacheKey(m.provider, m.name, t)); ok {
				observability.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
				out[i] = v
				continue
			}
			observability.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) > 0 {
		vecs, err := m.call(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, v := range vecs {
			out[missIdx[j]] = v
			if m.cache != nil {
				m.cache.Put(CacheKey(m.provider, m.name, missTexts[j]), v)
			}
		}
	}

	if normalize {
		for i, v := range out {
			out[i] = Normalize(v)
		}
	}
	return out, nil
}

// call invokes the backend with timing and a result count check.
func (m *model) call(ctx context.Context, texts []string) ([][]float32, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	vecs, err := m.backend.Embed(ctx, texts)
	if err == nil && len(vecs) != len(texts) {
		err = fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vecs), len(texts))
	}
	observability.EmbeddingLatency.WithLabelValues(m.provider, m.name).Observe(time.Since(start).Seconds())
	observability.EmbeddingRequestsTotal.WithLabelValues(m.provider, m.name, observability.StatusLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	debug.Log("embedding", "encoded", "provider", m.provider, "model", m.name,
		"texts", len(texts), "duration", time.Since(start))
	return vecs, nil
}

// Normalize returns v scaled to unit L2 length. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
