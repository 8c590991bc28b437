package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// Memory is a thread-safe in-memory Store. It is the default backend
// for single-node deployments and the fixture for every pipeline test.
type Memory struct {
	mu sync.RWMutex

	readings    map[string][]domain.Reading // locationID → readings, unordered
	readingKeys map[string]struct{}         // idempotency keys

	assessments map[string][]domain.RiskAssessment // locationID → append-only history
	byID        map[string]domain.RiskAssessment

	alerts map[string]domain.Alert
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		readings:    make(map[string][]domain.Reading),
		readingKeys: make(map[string]struct{}),
		assessments: make(map[string][]domain.RiskAssessment),
		byID:        make(map[string]domain.RiskAssessment),
		alerts:      make(map[string]domain.Alert),
	}
}

func (m *Memory) InsertReadings(_ context.Context, readings []domain.Reading) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, r := range readings {
		key := r.Key()
		if _, exists := m.readingKeys[key]; exists {
			continue
		}
		m.readingKeys[key] = struct{}{}
		m.readings[r.LocationID] = append(m.readings[r.LocationID], r)
		inserted++
	}
	return inserted, nil
}

func (m *Memory) LatestReadings(_ context.Context, locationID string, asOf time.Time) (map[domain.MeasurementKind]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[domain.MeasurementKind]domain.Reading)
	for _, r := range m.readings[locationID] {
		if r.Timestamp.After(asOf) {
			continue
		}
		cur, ok := latest[r.Kind]
		if !ok || r.Timestamp.After(cur.Timestamp) {
			latest[r.Kind] = r
		}
	}
	return latest, nil
}

func (m *Memory) DeleteReadingsBefore(_ context.Context, cutoff time.Time, keepAfter map[string]time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for locationID, rs := range m.readings {
		kept := rs[:0]
		for _, r := range rs {
			protect := false
			if keep, ok := keepAfter[locationID]; ok && !r.Timestamp.Before(keep) {
				protect = true
			}
			if r.Timestamp.Before(cutoff) && !protect {
				delete(m.readingKeys, r.Key())
				deleted++
				continue
			}
			kept = append(kept, r)
		}
		m.readings[locationID] = kept
	}
	return deleted, nil
}

func (m *Memory) InsertAssessment(_ context.Context, a domain.RiskAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[a.ID]; exists {
		return fmt.Errorf("assessment %s already exists", a.ID)
	}
	m.byID[a.ID] = a
	m.assessments[a.LocationID] = append(m.assessments[a.LocationID], a)
	return nil
}

func (m *Memory) LatestAssessment(_ context.Context, locationID string) (domain.RiskAssessment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest domain.RiskAssessment
	found := false
	for _, a := range m.assessments[locationID] {
		if !found || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
			found = true
		}
	}
	return latest, found, nil
}

func (m *Memory) GetAssessment(_ context.Context, id string) (domain.RiskAssessment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.byID[id]
	return a, ok, nil
}

func (m *Memory) DeleteAssessmentsBefore(_ context.Context, cutoff time.Time, keep map[string]struct{}) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for locationID, as := range m.assessments {
		kept := as[:0]
		for _, a := range as {
			_, protected := keep[a.ID]
			if a.CreatedAt.Before(cutoff) && !protected {
				delete(m.byID, a.ID)
				deleted++
				continue
			}
			kept = append(kept, a)
		}
		m.assessments[locationID] = kept
	}
	return deleted, nil
}

func (m *Memory) InsertAlert(_ context.Context, a domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.alerts[a.ID]; exists {
		return fmt.Errorf("alert %s already exists", a.ID)
	}
	m.alerts[a.ID] = a
	return nil
}

func (m *Memory) UpdateAlert(_ context.Context, a domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.alerts[a.ID]; !exists {
		return fmt.Errorf("alert %s not found", a.ID)
	}
	m.alerts[a.ID] = a
	return nil
}

func (m *Memory) GetAlert(_ context.Context, id string) (domain.Alert, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.alerts[id]
	return a, ok, nil
}

func (m *Memory) ActiveAlert(_ context.Context, locationID string, hazard domain.HazardType) (domain.Alert, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.alerts {
		if a.LocationID == locationID && a.Hazard == hazard && a.Status == domain.StatusActive {
			return a, true, nil
		}
	}
	return domain.Alert{}, false, nil
}

func (m *Memory) ActiveAlerts(_ context.Context) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []domain.Alert
	for _, a := range m.alerts {
		if a.Status == domain.StatusActive {
			active = append(active, a)
		}
	}
	return active, nil
}

func (m *Memory) DeleteClosedAlertsBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, a := range m.alerts {
		if a.Status == domain.StatusActive {
			continue
		}
		if a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
			delete(m.alerts, id)
			deleted++
		}
	}
	return deleted, nil
}
