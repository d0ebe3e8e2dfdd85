// Command seed builds a small chromem-go database of sample documents so
// vector-view has something to show. Documents are embedded with the
// configured provider, for example the mock-embedder command:
//
//	mock-embedder &
//	seed --path ./demo-db --model openai:mock --base-url http://localhost:8080
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikolayKlyatishev/vector-view/pkg/embedding"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb/chromem"
)

type options struct {
	path       string
	collection string
	model      string
	baseURL    string
	apiKey     string
	compress   bool
	reset      bool
}

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "seed",
		Short:         "Create a demo vector database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := seed(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d documents into %s (collection %q)\n", n, opts.path, opts.collection)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.path, "path", "./demo-db", "database folder to create")
	f.StringVar(&opts.collection, "collection", "usage-guides", "collection name")
	f.StringVar(&opts.model, "model", "openai:mock", "embedding model identifier")
	f.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "embedding provider URL")
	f.StringVar(&opts.apiKey, "api-key", os.Getenv("EMBEDDING_API_KEY"), "embedding provider API key")
	f.BoolVar(&opts.compress, "compress", false, "gzip document files")
	f.BoolVar(&opts.reset, "reset", false, "remove the folder first")
	return cmd
}

// seed writes the sample documents and returns how many were added.
func seed(ctx context.Context, opts *options) (int, error) {
	if opts.reset {
		if err := os.RemoveAll(opts.path); err != nil {
			return 0, fmt.Errorf("removing %s: %w", opts.path, err)
		}
	}

	loader := embedding.NewLoader(embedding.Config{
		BaseURL: opts.baseURL,
		APIKey:  opts.apiKey,
		Timeout: 30 * time.Second,
	})
	model, err := loader.Load(ctx, opts.model)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(samples))
	for i, s := range samples {
		texts[i] = s.text
	}
	vecs, err := model.Encode(ctx, texts, true)
	if err != nil {
		return 0, fmt.Errorf("embedding samples: %w", err)
	}

	client, err := chromem.Opener{Compress: opts.compress}.Create(ctx, opts.path)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	coll, err := client.CreateCollection(ctx, opts.collection, map[string]string{
		"description": "vector-view demo documents",
		"model":       opts.model,
	})
	if errors.Is(err, vectordb.ErrCollectionExists) {
		return 0, fmt.Errorf("collection %q already exists in %s, use --reset to rebuild", opts.collection, opts.path)
	}
	if err != nil {
		return 0, err
	}

	records := make([]vectordb.Record, len(samples))
	for i, s := range samples {
		records[i] = vectordb.Record{
			ID:        fmt.Sprintf("%s-%02d", s.schema, i),
			Document:  s.text,
			Metadata:  map[string]string{"schema": s.schema, "source": "seed"},
			Embedding: vecs[i],
		}
	}
	if err := coll.(*chromem.Collection).Add(ctx, records); err != nil {
		return 0, fmt.Errorf("adding documents: %w", err)
	}
	slog.Debug("seeded collection", "path", opts.path, "collection", opts.collection, "documents", len(records))
	return len(records), nil
}

type sample struct {
	schema string
	text   string
}

var samples = []sample{
	{"guide", "To connect a database, open the connections page and add the folder that holds the chroma files."},
	{"guide", "Search embeds your query with the connection's model and returns the nearest documents first."},
	{"guide", "The vectors page plots the first two dimensions of each stored embedding."},
	{"guide", "Chunks are listed twenty per page; use the page links to move through a large collection."},
	{"guide", "Relative database paths are resolved against the configured search roots."},
	{"faq", "Why is the database unavailable? No connection is active or the last connect failed."},
	{"faq", "Can I switch models? Edit the connection and reconnect; queries then use the new model."},
	{"faq", "Where are connections stored? In the data directory, next to the user preferences."},
	{"faq", "Does validation change anything? No, it only inspects the folder and lists its collections."},
	{"api", "GET /api/collections lists collections with their metadata and document counts."},
	{"api", "POST /api/search takes a query, an optional schema filter and top_k."},
	{"api", "GET /api/vectors returns up to limit embeddings with a short document preview."},
}
