package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names selectable via VECTOR_BACKEND.
const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	DocsPath            string
	SupportedExtensions []string
	DBPath              string
	VectorBackend       string
	QdrantURL           string
	QdrantCollection    string
	VectorSize          int
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingAPIKey     string
	EmbeddingTimeout    time.Duration
	ChunkMaxTokens      int
	IngestOnStartup     bool
	IngestIncremental   bool
	IngestWorkers       int
	APIPort             string
	LogLevel            slog.Level
	LogFormat           string
}

// Load reads configuration from environment variables and returns a Config.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory it is loaded first;
// environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DocsPath:            getEnv("DOCS_PATH", "./docs"),
		SupportedExtensions: splitExtensions(getEnv("SUPPORTED_EXTENSIONS", ".md,.txt,.adoc")),
		DBPath:              getEnv("DB_PATH", "./data/orchestrator.db"),
		VectorBackend:       getEnv("VECTOR_BACKEND", BackendMemory),
		QdrantURL:           getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:    getEnv("QDRANT_COLLECTION", "context_chunks"),
		EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName:  getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", "dummy-key"),
		APIPort:             getEnv("API_PORT", "8080"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
	}

	if cfg.VectorBackend != BackendMemory && cfg.VectorBackend != BackendQdrant {
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendMemory, BackendQdrant, cfg.VectorBackend)
	}

	var err error
	if cfg.VectorSize, err = getEnvInt("VECTOR_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("VECTOR_SIZE must be greater than 0")
	}

	if cfg.ChunkMaxTokens, err = getEnvInt("CHUNK_MAX_TOKENS", 512); err != nil {
		return nil, err
	}
	if cfg.ChunkMaxTokens <= 0 {
		return nil, fmt.Errorf("CHUNK_MAX_TOKENS must be greater than 0")
	}

	if cfg.IngestWorkers, err = getEnvInt("INGEST_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.IngestWorkers <= 0 {
		return nil, fmt.Errorf("INGEST_WORKERS must be greater than 0")
	}

	if cfg.IngestOnStartup, err = getEnvBool("INGEST_ON_STARTUP", true); err != nil {
		return nil, err
	}
	if cfg.IngestIncremental, err = getEnvBool("INGEST_INCREMENTAL", true); err != nil {
		return nil, err
	}

	timeoutSecs, err := getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	if timeoutSecs <= 0 {
		return nil, fmt.Errorf("EMBEDDING_TIMEOUT_SECONDS must be greater than 0")
	}
	cfg.EmbeddingTimeout = time.Duration(timeoutSecs) * time.Second

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	// Create the data directory for the ledger database if needed.
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return parsed, nil
}

func splitExtensions(raw string) []string {
	var exts []string
	for _, ext := range strings.Split(raw, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}
