package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/contextutil"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/embedding"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/storage"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/vectorindex"
)

var (
	// ErrRunInProgress is returned when RunOnce is called while another
	// ingestion pass is still in flight. Passes are never re-entrant.
	ErrRunInProgress = errors.New("ingestion run already in progress")
)

// Config holds ingestion settings.
type Config struct {
	DocsRoot     string        // Corpus root directory
	Extensions   []string      // Supported file extensions (default .md, .txt, .adoc)
	Incremental  bool          // Skip files whose fingerprint is unchanged
	Workers      int           // Bounded per-file worker pool size (default 4)
	EmbedTimeout time.Duration // Per-file embedding call timeout (default 30s)
}

// Summary reports the outcome of one ingestion pass.
type Summary struct {
	Processed   int `json:"processed"`
	Skipped     int `json:"skipped"`
	Deleted     int `json:"deleted"`
	Failed      int `json:"failed"`
	TotalChunks int `json:"totalChunks"`
}

// HasChanges reports whether the pass modified the index.
func (s Summary) HasChanges() bool {
	return s.Processed > 0 || s.Deleted > 0
}

// Indexer orchestrates ingestion passes over the docs root: discovery,
// orphan cleanup, change detection, chunking, embedding, and storage.
//
// Within a pass, per-file processing runs on a bounded worker pool. Orphan
// cleanup always completes before the pool starts, and each discovered path
// is owned by exactly one worker, so ledger writes and vector deletes/upserts
// for a given path are naturally serialized. Queries running concurrently
// with a pass may transiently see zero or duplicate results for a source
// that is mid-reindex; that window is bounded and accepted.
type Indexer struct {
	cfg      Config
	sources  storage.SourceStore
	index    vectorindex.Index
	embedder embedding.Embedder
	chunker  *Chunker
	health   *Health
	logger   *slog.Logger

	// Active-run guard: 0 = idle, 1 = a pass is in flight.
	running atomic.Int32
}

// New creates an Indexer. Zero-value config fields get defaults.
func New(cfg Config, sources storage.SourceStore, index vectorindex.Index, embedder embedding.Embedder, chunker *Chunker) *Indexer {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".md", ".txt", ".adoc"}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = 30 * time.Second
	}
	return &Indexer{
		cfg:      cfg,
		sources:  sources,
		index:    index,
		embedder: embedder,
		chunker:  chunker,
		health:   NewHealth(),
		logger:   slog.Default(),
	}
}

// Health returns the tracker holding the outcome of the last pass.
func (ix *Indexer) Health() *Health {
	return ix.health
}

// RunOnce executes a single ingestion pass and returns its summary.
//
// A single file's read or embedding failure is logged and skipped; a ledger
// or vector index failure aborts the whole pass. Returns ErrRunInProgress
// if another pass is already running.
func (ix *Indexer) RunOnce(ctx context.Context) (Summary, error) {
	if !ix.running.CompareAndSwap(0, 1) {
		return Summary{}, ErrRunInProgress
	}
	defer ix.running.Store(0)

	logger := contextutil.LoggerFromContext(ctx)

	summary, err := ix.run(ctx, logger)
	if err != nil {
		ix.health.MarkUnhealthy(err)
		return Summary{}, err
	}
	ix.health.MarkHealthy(summary)
	return summary, nil
}

func (ix *Indexer) run(ctx context.Context, logger *slog.Logger) (Summary, error) {
	if _, err := os.Stat(ix.cfg.DocsRoot); os.IsNotExist(err) {
		logger.WarnContext(ctx, "docs root does not exist", "path", ix.cfg.DocsRoot)
		return Summary{}, nil
	}

	files, err := ix.discover(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to discover files: %w", err)
	}

	// Phase 1: remove chunks and records for files no longer on disk.
	// Must fully complete before any per-file processing starts.
	deleted, err := ix.cleanupDeleted(ctx, logger, files)
	if err != nil {
		return Summary{}, err
	}

	// Phase 2: process current files on a bounded worker pool.
	var processed, skipped, failed, totalChunks atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)

	for _, file := range files {
		g.Go(func() error {
			return ix.processFile(gctx, logger, file, &processed, &skipped, &failed, &totalChunks)
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Processed:   int(processed.Load()),
		Skipped:     int(skipped.Load()),
		Deleted:     deleted,
		Failed:      int(failed.Load()),
		TotalChunks: int(totalChunks.Load()),
	}

	logger.InfoContext(ctx, "ingestion complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"deleted", summary.Deleted,
		"failed", summary.Failed,
		"chunks", summary.TotalChunks,
	)

	return summary, nil
}

// discoveredFile pairs a file's absolute path with its normalized key.
type discoveredFile struct {
	RelPath string // canonical relative, slash-separated path (ledger key)
	AbsPath string
}

// discover enumerates supported files under the docs root. Paths are
// normalized to slash-separated relatives; the same normalization is used
// everywhere a path is stored or compared.
func (ix *Indexer) discover(ctx context.Context) ([]discoveredFile, error) {
	var files []discoveredFile

	err := filepath.Walk(ix.cfg.DocsRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			// Skip hidden directories (.git, .obsidian and friends).
			if strings.HasPrefix(info.Name(), ".") && path != ix.cfg.DocsRoot {
				return filepath.SkipDir
			}
			return nil
		}

		if !ix.isSupported(path) {
			return nil
		}

		relPath, err := filepath.Rel(ix.cfg.DocsRoot, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}

		files = append(files, discoveredFile{
			RelPath: filepath.ToSlash(relPath),
			AbsPath: path,
		})
		return nil
	})

	return files, err
}

func (ix *Indexer) isSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range ix.cfg.Extensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// cleanupDeleted removes index chunks and ledger records for every tracked
// source whose path was not discovered on disk. Returns the number of files
// cleaned up. Ledger or index failures here are fatal for the pass.
func (ix *Indexer) cleanupDeleted(ctx context.Context, logger *slog.Logger, files []discoveredFile) (int, error) {
	current := make(map[string]struct{}, len(files))
	for _, f := range files {
		current[f.RelPath] = struct{}{}
	}

	records, err := ix.sources.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tracked sources: %w", err)
	}

	deleted := 0
	for _, rec := range records {
		if _, ok := current[rec.FilePath]; ok {
			continue
		}

		logger.InfoContext(ctx, "source no longer exists, removing from index",
			"file", rec.FilePath, "chunks", rec.ChunkCount)

		if _, err := ix.index.DeleteBySource(ctx, rec.FilePath); err != nil {
			return deleted, fmt.Errorf("failed to delete chunks for %s: %w", rec.FilePath, err)
		}
		if err := ix.sources.Delete(ctx, rec.FilePath); err != nil {
			return deleted, fmt.Errorf("failed to delete ledger record for %s: %w", rec.FilePath, err)
		}
		deleted++
	}

	if deleted > 0 {
		logger.InfoContext(ctx, "cleaned up deleted files", "count", deleted)
	}
	return deleted, nil
}

// processFile runs the per-file pipeline: fingerprint, change decision,
// chunk, embed, upsert, ledger update. Read and embedding failures count as
// failed and do not abort the pass; storage failures are returned and do.
func (ix *Indexer) processFile(ctx context.Context, logger *slog.Logger, file discoveredFile,
	processed, skipped, failed, totalChunks *atomic.Int32) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	content, err := os.ReadFile(file.AbsPath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read file, skipping", "file", file.RelPath, "error", err)
		failed.Add(1)
		return nil
	}

	fingerprint := HashBytes(content)

	if ix.cfg.Incremental {
		unchanged, err := ix.sources.Exists(ctx, file.RelPath, fingerprint)
		if err != nil {
			return fmt.Errorf("failed to check ledger for %s: %w", file.RelPath, err)
		}
		if unchanged {
			logger.DebugContext(ctx, "skipping unchanged file", "file", file.RelPath)
			skipped.Add(1)
			return nil
		}
	}

	// Remove any previous chunks and record for this path before producing
	// new ones, so old and new chunks never coexist under the same path.
	prior, err := ix.sources.Find(ctx, file.RelPath)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to look up ledger record for %s: %w", file.RelPath, err)
	}
	if prior != nil {
		logger.InfoContext(ctx, "file changed, removing old chunks before re-indexing",
			"file", file.RelPath, "old_chunks", prior.ChunkCount)
		if _, err := ix.index.DeleteBySource(ctx, file.RelPath); err != nil {
			return fmt.Errorf("failed to delete old chunks for %s: %w", file.RelPath, err)
		}
		if err := ix.sources.Delete(ctx, file.RelPath); err != nil {
			return fmt.Errorf("failed to delete ledger record for %s: %w", file.RelPath, err)
		}
	}

	chunks := ix.chunker.ChunkContent(string(content), file.RelPath, fingerprint)

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
		}

		embedCtx, cancel := context.WithTimeout(ctx, ix.cfg.EmbedTimeout)
		vectors, err := ix.embedder.EmbedTexts(embedCtx, texts)
		cancel()
		if err != nil {
			// Transient upstream failure: this file is retried on the next
			// pass because its ledger record is already gone.
			logger.ErrorContext(ctx, "failed to embed chunks, skipping file", "file", file.RelPath, "error", err)
			failed.Add(1)
			return nil
		}
		if len(vectors) != len(chunks) {
			logger.ErrorContext(ctx, "embedding count mismatch, skipping file",
				"file", file.RelPath, "expected", len(chunks), "got", len(vectors))
			failed.Add(1)
			return nil
		}
		for i := range chunks {
			chunks[i].Vector = vectors[i]
		}

		if err := ix.index.UpsertMany(ctx, chunks); err != nil {
			return fmt.Errorf("failed to upsert chunks for %s: %w", file.RelPath, err)
		}
	}

	rec := &storage.SourceRecord{
		FilePath:    file.RelPath,
		Fingerprint: fingerprint,
		SizeBytes:   int64(len(content)),
		ChunkCount:  len(chunks),
	}
	if err := ix.sources.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to upsert ledger record for %s: %w", file.RelPath, err)
	}

	logger.InfoContext(ctx, "indexed file", "file", file.RelPath, "chunks", len(chunks))
	processed.Add(1)
	totalChunks.Add(int32(len(chunks)))
	return nil
}
