// Command docbrief indexes project documentation and serves
// task-scoped context to AI assistants over MCP or the CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docbrief/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docbrief/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/docbrief/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docbrief/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docbrief/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docbrief/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/docbrief/internal/adapters/driving/cli"
	"github.com/custodia-labs/docbrief/internal/chunker"
	"github.com/custodia-labs/docbrief/internal/core/ports/driven"
	"github.com/custodia-labs/docbrief/internal/core/services"
	"github.com/custodia-labs/docbrief/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening chunk store: %w", err)
	}
	defer store.Close()

	embedder := buildEmbedder(cfg)
	if embedder != nil {
		if perr := embedder.Ping(ctx); perr != nil {
			logger.Warn("Embedding service unreachable, structural retrieval only: %v", perr)
			embedder.Close()
			embedder = nil
		}
	}

	index, err := buildVectorIndex(ctx, cfg, embedder)
	if err != nil {
		return fmt.Errorf("connecting vector index: %w", err)
	}
	if embedder != nil {
		defer embedder.Close()
	}

	scoring := services.LoadScoringConfig(cfg)
	cache := services.NewEmbedCache(0, 0)

	retriever := services.NewRetriever(store, index, embedder, cache, scoring)
	contextSvc := services.NewContextService(retriever, scoring)
	ingestor := services.NewIngestor(chunker.New(), store, index, embedder)

	cli.SetServices(cli.Services{
		Context: contextSvc,
		Ingest:  ingestor,
	})

	return cli.Execute(ctx)
}

// buildEmbedder constructs the configured embedding service, or nil
// when embedding is disabled. Without an embedder only the structural
// strategy runs.
func buildEmbedder(cfg driven.ConfigStore) driven.EmbeddingService {
	provider := cfg.GetString("embedding.provider")
	switch provider {
	case "", "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.GetString("embedding.ollama.base_url"),
			Model:      cfg.GetString("embedding.ollama.model"),
			Dimensions: cfg.GetInt("embedding.ollama.dimensions"),
		})
	case "openai":
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            firstNonEmpty(cfg.GetString("embedding.openai.api_key"), os.Getenv("OPENAI_API_KEY")),
			BaseURL:           cfg.GetString("embedding.openai.base_url"),
			Model:             cfg.GetString("embedding.openai.model"),
			Dimensions:        cfg.GetInt("embedding.openai.dimensions"),
			RequestsPerMinute: cfg.GetInt("embedding.openai.requests_per_minute"),
		})
		if err != nil {
			logger.Warn("OpenAI embedding unavailable: %v", err)
			return nil
		}
		return svc
	case "none":
		return nil
	default:
		logger.Warn("Unknown embedding provider %q, semantic retrieval disabled", provider)
		return nil
	}
}

// buildVectorIndex constructs the configured vector index. Qdrant when
// configured, otherwise an in-process index. Nil embedder means no
// vectors will ever be written, so no index is needed.
func buildVectorIndex(ctx context.Context, cfg driven.ConfigStore, embedder driven.EmbeddingService) (driven.VectorIndex, error) {
	if embedder == nil {
		return nil, nil
	}

	switch provider := cfg.GetString("vector.provider"); provider {
	case "qdrant":
		return qdrant.NewIndex(ctx, qdrant.Config{
			BaseURL:    cfg.GetString("vector.qdrant.base_url"),
			APIKey:     cfg.GetString("vector.qdrant.api_key"),
			Collection: cfg.GetString("vector.qdrant.collection"),
			Dimensions: embedder.Dimensions(),
		})
	case "", "memory":
		return memory.NewIndex(), nil
	default:
		return nil, fmt.Errorf("unknown vector provider %q", provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
