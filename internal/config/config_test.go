package config

import (
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// setBaseEnv points the data directory at a temp dir so Load never writes
// into the working directory.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "data", "test.db"))
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.VectorBackend != BackendMemory {
		t.Errorf("VectorBackend = %s, want %s", cfg.VectorBackend, BackendMemory)
	}
	if cfg.VectorSize != 1024 {
		t.Errorf("VectorSize = %d, want 1024", cfg.VectorSize)
	}
	if cfg.ChunkMaxTokens != 512 {
		t.Errorf("ChunkMaxTokens = %d, want 512", cfg.ChunkMaxTokens)
	}
	if cfg.IngestWorkers != 4 {
		t.Errorf("IngestWorkers = %d, want 4", cfg.IngestWorkers)
	}
	if !cfg.IngestOnStartup || !cfg.IngestIncremental {
		t.Errorf("IngestOnStartup/IngestIncremental = %v/%v, want true/true",
			cfg.IngestOnStartup, cfg.IngestIncremental)
	}
	if cfg.EmbeddingTimeout != 30*time.Second {
		t.Errorf("EmbeddingTimeout = %v, want 30s", cfg.EmbeddingTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if !reflect.DeepEqual(cfg.SupportedExtensions, []string{".md", ".txt", ".adoc"}) {
		t.Errorf("SupportedExtensions = %v, want default set", cfg.SupportedExtensions)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("VECTOR_SIZE", "768")
	t.Setenv("SUPPORTED_EXTENSIONS", "md, RST")
	t.Setenv("INGEST_INCREMENTAL", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.VectorBackend != BackendQdrant {
		t.Errorf("VectorBackend = %s, want qdrant", cfg.VectorBackend)
	}
	if cfg.VectorSize != 768 {
		t.Errorf("VectorSize = %d, want 768", cfg.VectorSize)
	}
	// Extensions normalize to lowercase with a leading dot.
	if !reflect.DeepEqual(cfg.SupportedExtensions, []string{".md", ".rst"}) {
		t.Errorf("SupportedExtensions = %v, want [.md .rst]", cfg.SupportedExtensions)
	}
	if cfg.IngestIncremental {
		t.Error("IngestIncremental = true, want false")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown backend", key: "VECTOR_BACKEND", value: "pinecone"},
		{name: "non-numeric vector size", key: "VECTOR_SIZE", value: "large"},
		{name: "zero vector size", key: "VECTOR_SIZE", value: "0"},
		{name: "zero chunk budget", key: "CHUNK_MAX_TOKENS", value: "0"},
		{name: "zero workers", key: "INGEST_WORKERS", value: "0"},
		{name: "bad boolean", key: "INGEST_ON_STARTUP", value: "maybe"},
		{name: "bad timeout", key: "EMBEDDING_TIMEOUT_SECONDS", value: "-5"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s expected error, got nil", tt.key, tt.value)
			}
		})
	}
}
