package scheduler

import (
	"errors"
	"sync"
	"time"
)

// Stage names used in health state and metrics labels.
const (
	StageIngest  = "ingest"
	StageScore   = "score"
	StageCleanup = "cleanup"
)

// StageStatus is the recorded outcome history for one pipeline stage.
type StageStatus struct {
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
}

// Health tracks per-stage outcomes and degraded provider pairs. The
// HTTP readiness probe reads it; the scheduler writes it.
type Health struct {
	mu            sync.RWMutex
	stages        map[string]StageStatus
	degradedPairs int
}

func NewHealth() *Health {
	return &Health{stages: make(map[string]StageStatus)}
}

func (h *Health) RecordSuccess(stage string, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.stages[stage]
	st.LastSuccess = at
	h.stages[stage] = st
}

func (h *Health) RecordError(stage string, err error, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.stages[stage]
	st.LastError = err.Error()
	st.LastErrorAt = at
	h.stages[stage] = st
}

func (h *Health) SetDegradedPairs(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.degradedPairs = n
}

// DegradedPairs returns the pair count from the last ingest cycle.
func (h *Health) DegradedPairs() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.degradedPairs
}

// Snapshot returns a copy of the per-stage status map.
func (h *Health) Snapshot() map[string]StageStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]StageStatus, len(h.stages))
	for k, v := range h.stages {
		out[k] = v
	}
	return out
}

// CheckReadiness reports whether the pipeline has completed at least
// one successful ingest cycle. A service storing fresh readings is
// serving, even before the first assessment lands. Degraded provider
// pairs do not fail readiness; a pipeline limping on partial data is
// still serving.
func (h *Health) CheckReadiness() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stages[StageIngest].LastSuccess.IsZero() {
		return errors.New("no ingest cycle has completed yet")
	}
	return nil
}
