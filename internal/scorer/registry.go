// Package scorer turns stored readings into persisted risk assessments.
// It assembles feature vectors, runs the configured model under a
// deadline, discretizes the score, and appends the assessment to the
// store. A scoring failure for one location never blocks the others.
package scorer

import (
	"fmt"
	"sync"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// Registry maps model version identifiers to models. Registration
// happens at startup; lookup failures surface as ErrModelLoadFailure so
// the scheduler can distinguish them from inference failures.
type Registry struct {
	mu     sync.RWMutex
	models map[string]domain.Model
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]domain.Model)}
}

func (r *Registry) Register(m domain.Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.Version()] = m
}

// Get returns the model registered under version.
func (r *Registry) Get(version string) (domain.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[version]
	if !ok {
		return nil, fmt.Errorf("%w: no model registered for version %q", domain.ErrModelLoadFailure, version)
	}
	return m, nil
}

// Versions lists the registered model versions.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := make([]string, 0, len(r.models))
	for v := range r.models {
		versions = append(versions, v)
	}
	return versions
}
