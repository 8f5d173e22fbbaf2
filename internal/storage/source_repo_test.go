package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// testDB opens a migrated temp-file database. A file-backed database is
// required because the pool hands ":memory:" a fresh database per connection.
func testDB(t *testing.T) *SourceRepo {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSourceRepo(db)
}

func testRecord(filePath, fingerprint string, chunkCount int) *SourceRecord {
	return &SourceRecord{
		FilePath:    filePath,
		Fingerprint: fingerprint,
		SizeBytes:   1024,
		ChunkCount:  chunkCount,
	}
}

func TestSourceRepo_Exists(t *testing.T) {
	ctx := context.Background()
	repo := testDB(t)

	if err := repo.Upsert(ctx, testRecord("docs/a.md", "hash1", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		fingerprint string
		want        bool
	}{
		{
			name:        "matching path and fingerprint",
			filePath:    "docs/a.md",
			fingerprint: "hash1",
			want:        true,
		},
		{
			name:        "same path different fingerprint",
			filePath:    "docs/a.md",
			fingerprint: "hash2",
			want:        false,
		},
		{
			name:        "unknown path",
			filePath:    "docs/b.md",
			fingerprint: "hash1",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Exists(ctx, tt.filePath, tt.fingerprint)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceRepo_Find(t *testing.T) {
	ctx := context.Background()
	repo := testDB(t)

	if err := repo.Upsert(ctx, testRecord("docs/a.md", "hash1", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rec, err := repo.Find(ctx, "docs/a.md")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if rec.Fingerprint != "hash1" {
		t.Errorf("Fingerprint = %s, want hash1", rec.Fingerprint)
	}
	if rec.ChunkCount != 3 {
		t.Errorf("ChunkCount = %d, want 3", rec.ChunkCount)
	}
	if rec.FirstIndexedAt.IsZero() || rec.LastUpdatedAt.IsZero() {
		t.Error("timestamps should be populated on insert")
	}

	_, err = repo.Find(ctx, "docs/missing.md")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() for missing path error = %v, want ErrNotFound", err)
	}
}

func TestSourceRepo_Upsert_PreservesFirstIndexedAt(t *testing.T) {
	ctx := context.Background()
	repo := testDB(t)

	original := testRecord("docs/a.md", "hash1", 3)
	original.FirstIndexedAt = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	original.LastUpdatedAt = original.FirstIndexedAt
	if err := repo.Upsert(ctx, original); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	updated := testRecord("docs/a.md", "hash2", 5)
	updated.LastUpdatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}

	rec, err := repo.Find(ctx, "docs/a.md")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if rec.Fingerprint != "hash2" {
		t.Errorf("Fingerprint = %s, want hash2 after update", rec.Fingerprint)
	}
	if rec.ChunkCount != 5 {
		t.Errorf("ChunkCount = %d, want 5 after update", rec.ChunkCount)
	}
	if !rec.FirstIndexedAt.Equal(original.FirstIndexedAt) {
		t.Errorf("FirstIndexedAt = %v, want original %v preserved", rec.FirstIndexedAt, original.FirstIndexedAt)
	}
	if !rec.LastUpdatedAt.Equal(updated.LastUpdatedAt) {
		t.Errorf("LastUpdatedAt = %v, want %v", rec.LastUpdatedAt, updated.LastUpdatedAt)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d after upsert of same path, want 1", count)
	}
}

func TestSourceRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo := testDB(t)

	if err := repo.Upsert(ctx, testRecord("docs/a.md", "hash1", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.Delete(ctx, "docs/a.md"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Find(ctx, "docs/a.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting an absent path is not an error.
	if err := repo.Delete(ctx, "docs/a.md"); err != nil {
		t.Errorf("Delete() of absent path error = %v, want nil", err)
	}
}

func TestSourceRepo_All(t *testing.T) {
	ctx := context.Background()
	repo := testDB(t)

	records, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("All() on empty ledger = %d records, want 0", len(records))
	}

	if err := repo.Upsert(ctx, testRecord("docs/b.md", "hash2", 2)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, testRecord("docs/a.md", "hash1", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	records, err = repo.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("All() = %d records, want 2", len(records))
	}
	if records[0].FilePath != "docs/a.md" || records[1].FilePath != "docs/b.md" {
		t.Errorf("All() order = [%s, %s], want sorted by path", records[0].FilePath, records[1].FilePath)
	}
}

func TestSourceRepo_TotalChunkCount(t *testing.T) {
	ctx := context.Background()
	repo := testDB(t)

	total, err := repo.TotalChunkCount(ctx)
	if err != nil {
		t.Fatalf("TotalChunkCount() error = %v", err)
	}
	if total != 0 {
		t.Errorf("TotalChunkCount() on empty ledger = %d, want 0", total)
	}

	if err := repo.Upsert(ctx, testRecord("docs/a.md", "hash1", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, testRecord("docs/b.md", "hash2", 4)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	total, err = repo.TotalChunkCount(ctx)
	if err != nil {
		t.Fatalf("TotalChunkCount() error = %v", err)
	}
	if total != 7 {
		t.Errorf("TotalChunkCount() = %d, want 7", total)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := NewSourceRepo(db)
	if err := repo.Upsert(ctx, testRecord("docs/a.md", "hash1", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := Reset(db); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() after Reset = %d, want 0", count)
	}
}
