package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// geminiTaskType tunes Gemini embeddings for search queries.
const geminiTaskType = "RETRIEVAL_QUERY"

// geminiEmbedder is the subset of the genai models service used here.
type geminiEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type geminiBackend struct {
	models geminiEmbedder
	model  string
}

func newGeminiBackend(ctx context.Context, apiKey, model string) (backend, error) {
	if apiKey == "" {
		return nil, errors.New("gemini provider requires an API key (embedding.api_key)")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &geminiBackend{models: client.Models, model: model}, nil
}

// Embed sends one content per text in a single request.
func (b *geminiBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}

	res, err := b.models.EmbedContent(ctx, b.model, contents, &genai.EmbedContentConfig{
		TaskType: geminiTaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
