package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Reset clears the source ledger. Used when the configured vector backend
// is volatile: an empty index with a populated ledger would make change
// detection skip files whose chunks no longer exist.
func Reset(db *sql.DB) error {
	_, err := db.Exec("DELETE FROM sources")
	return err
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			file_path TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			chunk_count INTEGER NOT NULL,
			first_indexed_at DATETIME NOT NULL,
			last_updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sources_fingerprint ON sources(fingerprint);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
