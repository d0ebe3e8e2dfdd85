package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultOpenAIURL is the embeddings server assumed when no base URL is set.
const DefaultOpenAIURL = "http://localhost:8080"

// OpenAIClient calls any OpenAI-compatible /v1/embeddings endpoint.
type OpenAIClient struct {
	URL        string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint. An
// empty url selects DefaultOpenAIURL.
func NewOpenAIClient(url, model, apiKey string, httpClient *http.Client) *OpenAIClient {
	if url == "" {
		url = DefaultOpenAIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		URL:        url,
		Model:      model,
		APIKey:     apiKey,
		HTTPClient: httpClient,
	}
}

// EmbeddingRequest is the JSON request body for the embeddings API.
type EmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// EmbeddingResponse is the JSON response from the embeddings API.
type EmbeddingResponse struct {
	Object string          `json:"object,omitempty"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model,omitempty"`
}

// EmbeddingData is one vector of an EmbeddingResponse.
type EmbeddingData struct {
	Object    string    `json:"object,omitempty"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// Endpoint returns the full embeddings URL.
func (c *OpenAIClient) Endpoint() string {
	endpoint := c.URL
	if strings.HasSuffix(endpoint, "/v1/embeddings") {
		return endpoint
	}
	endpoint = strings.TrimRight(endpoint, "/")
	if strings.HasSuffix(endpoint, "/v1") {
		return endpoint + "/embeddings"
	}
	return endpoint + "/v1/embeddings"
}

// Embed sends texts to the embeddings endpoint and returns the vectors in
// input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(EmbeddingRequest{Input: texts, Model: c.Model})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embedding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var embResp EmbeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}

	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response contained %d vectors for %d inputs", len(embResp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range embResp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range [0, %d)", d.Index, len(texts))
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding response missing vector for input %d", i)
		}
	}

	return vectors, nil
}
