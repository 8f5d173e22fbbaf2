package storage

import "time"

// SourceRecord tracks a source file that has been ingested into the index.
// There is at most one record per file path; its fingerprint and chunk count
// must match the chunks currently stored in the vector index for that path.
type SourceRecord struct {
	FilePath       string    // Relative, slash-separated path from the docs root (unique key)
	Fingerprint    string    // SHA-256 hex string of file content at ingestion time
	SizeBytes      int64     // File size in bytes at ingestion time
	ChunkCount     int       // Number of chunks produced from this file
	FirstIndexedAt time.Time // Set on first successful ingestion
	LastUpdatedAt  time.Time // Updated whenever the file is re-ingested
}
