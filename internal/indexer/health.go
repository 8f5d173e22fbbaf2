package indexer

import (
	"sync"
	"time"
)

// Health tracks the outcome of the most recent ingestion pass for status
// reporting. Safe for concurrent use.
type Health struct {
	mu      sync.RWMutex
	hasRun  bool
	healthy bool
	summary Summary
	lastErr string
	lastRun time.Time
}

// NewHealth creates a tracker with no recorded runs.
func NewHealth() *Health {
	return &Health{}
}

// MarkHealthy records a successful pass.
func (h *Health) MarkHealthy(summary Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hasRun = true
	h.healthy = true
	h.summary = summary
	h.lastErr = ""
	h.lastRun = time.Now().UTC()
}

// MarkUnhealthy records a failed pass with its error.
func (h *Health) MarkUnhealthy(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hasRun = true
	h.healthy = false
	h.lastErr = err.Error()
	h.lastRun = time.Now().UTC()
}

// HealthSnapshot is a point-in-time view of ingestion health.
type HealthSnapshot struct {
	HasRun  bool
	Healthy bool
	Summary Summary
	LastErr string
	LastRun time.Time
}

// Snapshot returns the current health state.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{
		HasRun:  h.hasRun,
		Healthy: h.healthy,
		Summary: h.summary,
		LastErr: h.lastErr,
		LastRun: h.lastRun,
	}
}
