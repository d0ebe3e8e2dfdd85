package embedding

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// funcBackend adapts a single-text chromem-go embedding function.
type funcBackend struct {
	embed chromem.EmbeddingFunc
}

func (b funcBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for i, t := range texts {
		v, err := b.embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding input %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// newOllamaBackend talks to Ollama's /api/embeddings endpoint. An empty baseURL
// selects chromem's default (http://localhost:11434/api).
func newOllamaBackend(baseURL, model string) backend {
	if baseURL != "" && !strings.HasSuffix(strings.TrimRight(baseURL, "/"), "/api") {
		baseURL = strings.TrimRight(baseURL, "/") + "/api"
	}
	return funcBackend{embed: chromem.NewEmbeddingFuncOllama(model, baseURL)}
}

// newLocalAIBackend talks to LocalAI. Without a baseURL chromem's default
// local endpoint is used; otherwise the OpenAI-compatible function is
// pointed at baseURL.
func newLocalAIBackend(baseURL, apiKey, model string) backend {
	if baseURL == "" {
		return funcBackend{embed: chromem.NewEmbeddingFuncLocalAI(model)}
	}
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return funcBackend{embed: chromem.NewEmbeddingFuncOpenAICompat(base, apiKey, model, nil)}
}
