package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_source_store.go -package=mocks github.com/andresdiegolanda/ai-context-orchestrator/internal/storage SourceStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

const timestampLayout = "2006-01-02 15:04:05"

// SourceStore defines the interface for the source ledger.
// It is the sole durable owner of SourceRecord data.
type SourceStore interface {
	// Exists reports whether a record with exactly this path and fingerprint
	// is stored, i.e. the file is unchanged since its last successful ingestion.
	Exists(ctx context.Context, filePath, fingerprint string) (bool, error)
	// Find returns the record for a file path. Returns ErrNotFound if absent.
	Find(ctx context.Context, filePath string) (*SourceRecord, error)
	// Upsert inserts a new record or updates an existing one for the same
	// file path. FirstIndexedAt is preserved on update.
	Upsert(ctx context.Context, rec *SourceRecord) error
	// Delete removes the record for a file path. Deleting an absent path is
	// not an error.
	Delete(ctx context.Context, filePath string) error
	// All returns every stored record, used for orphan detection.
	All(ctx context.Context) ([]SourceRecord, error)
	// Count returns the number of tracked source files.
	Count(ctx context.Context) (int, error)
	// TotalChunkCount returns the sum of chunk counts across all records.
	TotalChunkCount(ctx context.Context) (int, error)
}

// SourceRepo provides SQLite-backed source ledger operations.
// It implements the SourceStore interface.
type SourceRepo struct {
	db *sql.DB
}

// NewSourceRepo creates a new SourceRepo.
func NewSourceRepo(db *sql.DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// Exists reports whether a record with exactly this path and fingerprint exists.
func (r *SourceRepo) Exists(ctx context.Context, filePath, fingerprint string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sources WHERE file_path = ? AND fingerprint = ?",
		filePath, fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query source existence: %w", err)
	}
	return count > 0, nil
}

// Find returns the record for a file path. Returns ErrNotFound if absent.
func (r *SourceRepo) Find(ctx context.Context, filePath string) (*SourceRecord, error) {
	var rec SourceRecord
	var firstIndexedStr, lastUpdatedStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT file_path, fingerprint, size_bytes, chunk_count, first_indexed_at, last_updated_at FROM sources WHERE file_path = ?",
		filePath,
	).Scan(&rec.FilePath, &rec.Fingerprint, &rec.SizeBytes, &rec.ChunkCount, &firstIndexedStr, &lastUpdatedStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}

	if rec.FirstIndexedAt, err = parseTimestamp(firstIndexedStr); err != nil {
		return nil, fmt.Errorf("failed to parse first_indexed_at: %w", err)
	}
	if rec.LastUpdatedAt, err = parseTimestamp(lastUpdatedStr); err != nil {
		return nil, fmt.Errorf("failed to parse last_updated_at: %w", err)
	}

	return &rec, nil
}

// Upsert inserts a new record or updates the existing record for the same path.
func (r *SourceRepo) Upsert(ctx context.Context, rec *SourceRecord) error {
	now := time.Now().UTC()
	firstIndexed := rec.FirstIndexedAt
	if firstIndexed.IsZero() {
		firstIndexed = now
	}
	lastUpdated := rec.LastUpdatedAt
	if lastUpdated.IsZero() {
		lastUpdated = now
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sources (file_path, fingerprint, size_bytes, chunk_count, first_indexed_at, last_updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			size_bytes = excluded.size_bytes,
			chunk_count = excluded.chunk_count,
			last_updated_at = excluded.last_updated_at`,
		rec.FilePath, rec.Fingerprint, rec.SizeBytes, rec.ChunkCount,
		firstIndexed.Format(timestampLayout), lastUpdated.Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

// Delete removes the record for a file path.
func (r *SourceRepo) Delete(ctx context.Context, filePath string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sources WHERE file_path = ?", filePath)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

// All returns every stored record.
func (r *SourceRepo) All(ctx context.Context) ([]SourceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT file_path, fingerprint, size_bytes, chunk_count, first_indexed_at, last_updated_at FROM sources ORDER BY file_path",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []SourceRecord
	for rows.Next() {
		var rec SourceRecord
		var firstIndexedStr, lastUpdatedStr string
		if err := rows.Scan(&rec.FilePath, &rec.Fingerprint, &rec.SizeBytes, &rec.ChunkCount, &firstIndexedStr, &lastUpdatedStr); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		if rec.FirstIndexedAt, err = parseTimestamp(firstIndexedStr); err != nil {
			return nil, fmt.Errorf("failed to parse first_indexed_at: %w", err)
		}
		if rec.LastUpdatedAt, err = parseTimestamp(lastUpdatedStr); err != nil {
			return nil, fmt.Errorf("failed to parse last_updated_at: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Count returns the number of tracked source files.
func (r *SourceRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sources").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return count, nil
}

// TotalChunkCount returns the sum of chunk counts across all records.
func (r *SourceRepo) TotalChunkCount(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(chunk_count), 0) FROM sources").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum chunk counts: %w", err)
	}
	return total, nil
}

// parseTimestamp parses a DATETIME column value.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		// SQLite may hand back RFC3339 depending on how the value was written.
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
