package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/config"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/embedding"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/http"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/indexer"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/retriever"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/storage"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/vectorindex"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	ctx := context.Background()

	// Initialize the source ledger database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Source ledger initialized", "path", cfg.DBPath)

	sourceRepo := storage.NewSourceRepo(db)

	// Select the vector index backend
	var index vectorindex.Index
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		qdrantIndex, err := vectorindex.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		if err := qdrantIndex.EnsureCollection(ctx, cfg.VectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection: %v", err)
		}
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.VectorSize)
		index = qdrantIndex
	case config.BackendMemory:
		// The in-memory index starts empty every boot; clear the ledger so
		// change detection does not skip files whose chunks are gone.
		if err := storage.Reset(db); err != nil {
			log.Fatalf("Failed to reset source ledger: %v", err)
		}
		slog.Info("Using in-memory vector index")
		index = vectorindex.NewMemoryIndex()
	}

	embedder := embedding.NewClient(
		cfg.EmbeddingBaseURL,
		cfg.EmbeddingAPIKey,
		cfg.EmbeddingModelName,
		cfg.VectorSize,
		cfg.EmbeddingTimeout,
	)

	ix := indexer.New(indexer.Config{
		DocsRoot:     cfg.DocsPath,
		Extensions:   cfg.SupportedExtensions,
		Incremental:  cfg.IngestIncremental,
		Workers:      cfg.IngestWorkers,
		EmbedTimeout: cfg.EmbeddingTimeout,
	}, sourceRepo, index, embedder, indexer.NewChunker(cfg.ChunkMaxTokens))

	// Startup ingestion: a failed pass marks the service unhealthy (visible
	// on /api/health) instead of aborting startup, so operators can inspect
	// the retained error and retry via /api/v1/reindex.
	if cfg.IngestOnStartup {
		slog.Info("Starting document ingestion", "docs_path", cfg.DocsPath, "incremental", cfg.IngestIncremental)
		summary, err := ix.RunOnce(ctx)
		switch {
		case err != nil:
			slog.Error("Startup ingestion failed", "error", err)
		case !summary.HasChanges():
			slog.Info("No changes detected, index is up to date", "files_tracked", summary.Skipped)
		default:
			slog.Info("Ingestion complete",
				"processed", summary.Processed,
				"skipped", summary.Skipped,
				"deleted", summary.Deleted,
				"chunks", summary.TotalChunks,
			)
		}
	} else {
		slog.Info("Startup ingestion is disabled")
	}

	router := http.NewRouter(&http.Deps{
		Retriever: retriever.New(embedder, index),
		Indexer:   ix,
		Sources:   sourceRepo,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting HTTP server", "addr", addr, "backend", cfg.VectorBackend)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
