package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// HashBytes computes the SHA-256 hex digest (64 characters) of content.
// Identical byte sequences always produce identical digests; this is what
// makes change detection correct across runs and hosts.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashString computes the SHA-256 hex digest of a string.
func HashString(content string) string {
	return HashBytes([]byte(content))
}

// HashFile computes the SHA-256 hex digest of a file's content.
func HashFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return HashBytes(content), nil
}

// FileSize returns the size of a file in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return info.Size(), nil
}
