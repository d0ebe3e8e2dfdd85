// Command mock-embedder runs a deterministic OpenAI-compatible embeddings
// server for demos and tests. Equal inputs always produce equal vectors,
// and inputs sharing words produce nearby vectors.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 8080)
//	MOCK_DIM  - Vector dimension (default: 64)
package main

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const defaultDim = 64

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "8080"
	}
	dim := defaultDim
	if v := os.Getenv("MOCK_DIM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2 {
			slog.Error("invalid MOCK_DIM", "value", v)
			os.Exit(1)
		}
		dim = n
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/embeddings", handler(dim))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock embedder starting", "port", port, "dim", dim)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock embedder failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock embedder shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type embeddingRequest struct {
	Input any    `json:"input"`
	Model string `json:"model"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

func handler(dim int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		var inputs []string
		switch in := req.Input.(type) {
		case string:
			inputs = []string{in}
		case []any:
			for _, v := range in {
				s, ok := v.(string)
				if !ok {
					writeError(w, http.StatusBadRequest, "input must be a string or an array of strings")
					return
				}
				inputs = append(inputs, s)
			}
		default:
			writeError(w, http.StatusBadRequest, "input must be a string or an array of strings")
			return
		}

		resp := embeddingResponse{Object: "list", Model: req.Model, Data: make([]embeddingData, len(inputs))}
		for i, text := range inputs {
			resp.Data[i] = embeddingData{Object: "embedding", Embedding: embed(text, dim), Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// embed sums one pseudo-random unit direction per lowercased word, so
// texts sharing words point the same way.
func embed(text string, dim int) []float32 {
	v := make([]float64, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		for i := range v {
			h := fnv.New64a()
			h.Write([]byte(word))
			h.Write([]byte{byte(i), byte(i >> 8)})
			v[i] += float64(h.Sum64()%2001)/1000 - 1
		}
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)

	out := make([]float32, dim)
	for i, x := range v {
		if norm > 0 {
			x /= norm
		}
		out[i] = float32(x)
	}
	return out
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": msg, "type": "invalid_request_error"},
	})
}
