// Package alert owns the alert lifecycle: creation from qualifying risk
// assessments, deduplication against active alerts, cooldown-based
// flapping suppression, and the terminal resolve and dismiss
// transitions. All status mutation funnels through the Manager.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/observability"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/store"
)

var (
	// ErrAlertNotFound is returned by resolve and dismiss for unknown IDs.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrAlertClosed is returned when a terminal transition targets an
	// alert already closed the other way.
	ErrAlertClosed = errors.New("alert already closed")
)

// Outcome describes what Evaluate did with an assessment.
type Outcome string

const (
	OutcomeNone         Outcome = "none"          // below threshold, no active alert
	OutcomeCreated      Outcome = "created"       // new alert opened
	OutcomeUpdated      Outcome = "updated"       // active alert refreshed
	OutcomeSuppressed   Outcome = "suppressed"    // recreation blocked by cooldown
	OutcomeAutoResolved Outcome = "auto_resolved" // active alert closed by sustained low risk
)

// Publisher emits alert lifecycle events to an external sink. A nil
// Publisher disables publication.
type Publisher interface {
	PublishAlertEvent(ctx context.Context, eventType string, a domain.Alert) error
}

// Config tunes the lifecycle rules.
type Config struct {
	// Threshold is the minimum risk level that opens an alert.
	Threshold domain.RiskLevel

	// Cooldown suppresses recreation of an alert for the same
	// (location, hazard) after one closes, and blocks severity
	// downgrades on active alerts.
	Cooldown time.Duration

	// AutoResolve closes an active alert after AutoResolveAfter
	// consecutive below-threshold evaluations. Off by default; operators
	// close alerts explicitly unless this is enabled.
	AutoResolve      bool
	AutoResolveAfter int
}

// Manager drives the alert state machine over the alert store.
type Manager struct {
	alerts    store.AlertStore
	cfg       Config
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	publisher Publisher

	mu sync.Mutex
	// locks serializes transitions per (location, hazard) pair so two
	// concurrent evaluations cannot both open an alert.
	locks map[string]*sync.Mutex
	// closedAt records when a pair's last alert closed, for cooldown.
	closedAt map[string]time.Time
	// severityChanged records when the active alert's severity last
	// changed, gating downgrades. Refreshes that keep the severity do
	// not touch it.
	severityChanged map[string]time.Time
	// belowCount tracks consecutive below-threshold evaluations per pair
	// while an alert is active, for auto-resolution.
	belowCount map[string]int
}

func NewManager(alerts store.AlertStore, cfg Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, publisher Publisher) *Manager {
	return &Manager{
		alerts:     alerts,
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		publisher:  publisher,
		locks:           make(map[string]*sync.Mutex),
		closedAt:        make(map[string]time.Time),
		severityChanged: make(map[string]time.Time),
		belowCount:      make(map[string]int),
	}
}

func pairKey(locationID string, hazard domain.HazardType) string {
	return locationID + "|" + string(hazard)
}

func (m *Manager) pairLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Evaluate applies one assessment to the alert state for its location.
// Qualifying assessments open or refresh an alert; sub-threshold ones
// feed the auto-resolution counter. The hazard is classified from the
// assessment's features.
func (m *Manager) Evaluate(ctx context.Context, loc domain.Location, a domain.RiskAssessment) (Outcome, error) {
	hazard := domain.ClassifyHazard(a.Features)
	key := pairKey(loc.ID, hazard)

	l := m.pairLock(key)
	l.Lock()
	defer l.Unlock()

	active, found, err := m.alerts.ActiveAlert(ctx, loc.ID, hazard)
	if err != nil {
		return OutcomeNone, fmt.Errorf("look up active alert for %s: %w", key, err)
	}

	if !a.Level.AtLeast(m.cfg.Threshold) {
		if !found {
			return OutcomeNone, nil
		}
		return m.handleBelowThreshold(ctx, key, active)
	}

	m.mu.Lock()
	m.belowCount[key] = 0
	m.mu.Unlock()

	if found {
		return m.refresh(ctx, loc, active, a)
	}
	return m.open(ctx, key, loc, hazard, a)
}

// open creates a new alert unless the pair is still cooling down from a
// recent closure.
func (m *Manager) open(ctx context.Context, key string, loc domain.Location, hazard domain.HazardType, a domain.RiskAssessment) (Outcome, error) {
	now := m.clock.Now().UTC()

	m.mu.Lock()
	closed, wasClosed := m.closedAt[key]
	m.mu.Unlock()
	if wasClosed && now.Sub(closed) < m.cfg.Cooldown {
		m.metrics.AlertTransitions.WithLabelValues("suppressed").Inc()
		m.logger.Info("alert recreation suppressed by cooldown",
			"location", loc.ID, "hazard", hazard, "closed_at", closed)
		return OutcomeSuppressed, nil
	}

	alert := domain.Alert{
		ID:           "al-" + uuid.NewString(),
		LocationID:   loc.ID,
		Hazard:       hazard,
		Severity:     domain.SeverityFor(a.Level),
		Status:       domain.StatusActive,
		Title:        domain.AlertTitle(hazard, loc.Name),
		Message:      domain.AlertMessage(loc.Name, a),
		AssessmentID: a.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.alerts.InsertAlert(ctx, alert); err != nil {
		return OutcomeNone, fmt.Errorf("insert alert for %s: %w", key, err)
	}
	m.recordSeverityChange(key, now)

	m.metrics.AlertTransitions.WithLabelValues("created").Inc()
	m.syncActiveGauge(ctx)
	m.logger.Info("alert created",
		"alert", alert.ID, "location", loc.ID, "hazard", hazard, "severity", alert.Severity)
	m.publish(ctx, "created", alert)
	return OutcomeCreated, nil
}

// refresh updates the active alert from a new qualifying assessment.
// Severity escalates immediately; a downgrade applies only once the
// cooldown has elapsed since the severity last changed, so a flapping
// score cannot bounce the severity around. Refreshes themselves do not
// restart that window, or a steady cadence of assessments would pin
// the severity at its historical maximum.
func (m *Manager) refresh(ctx context.Context, loc domain.Location, active domain.Alert, a domain.RiskAssessment) (Outcome, error) {
	now := m.clock.Now().UTC()
	key := pairKey(active.LocationID, active.Hazard)
	severity := domain.SeverityFor(a.Level)

	switch {
	case severity.Outranks(active.Severity):
		active.Severity = severity
		m.recordSeverityChange(key, now)
	case active.Severity.Outranks(severity) && now.Sub(m.lastSeverityChange(key, active.CreatedAt)) >= m.cfg.Cooldown:
		active.Severity = severity
		m.recordSeverityChange(key, now)
	}

	active.AssessmentID = a.ID
	active.Message = domain.AlertMessage(loc.Name, a)
	active.UpdatedAt = now

	if err := m.alerts.UpdateAlert(ctx, active); err != nil {
		return OutcomeNone, fmt.Errorf("update alert %s: %w", active.ID, err)
	}

	m.metrics.AlertTransitions.WithLabelValues("updated").Inc()
	m.logger.Info("alert refreshed",
		"alert", active.ID, "location", active.LocationID, "severity", active.Severity)
	m.publish(ctx, "updated", active)
	return OutcomeUpdated, nil
}

// handleBelowThreshold counts sub-threshold evaluations against an
// active alert and auto-resolves once the run is long enough, when
// enabled.
func (m *Manager) handleBelowThreshold(ctx context.Context, key string, active domain.Alert) (Outcome, error) {
	if !m.cfg.AutoResolve {
		return OutcomeNone, nil
	}

	m.mu.Lock()
	m.belowCount[key]++
	count := m.belowCount[key]
	m.mu.Unlock()

	if count < m.cfg.AutoResolveAfter {
		return OutcomeNone, nil
	}

	if err := m.close(ctx, &active, domain.StatusResolved, "auto"); err != nil {
		return OutcomeNone, err
	}
	m.mu.Lock()
	m.belowCount[key] = 0
	m.mu.Unlock()

	m.logger.Info("alert auto-resolved",
		"alert", active.ID, "location", active.LocationID, "consecutive_low", count)
	m.publish(ctx, "resolved", active)
	return OutcomeAutoResolved, nil
}

// Resolve closes the alert as handled. Resolving an already resolved
// alert is a no-op.
func (m *Manager) Resolve(ctx context.Context, alertID, actor string) (domain.Alert, error) {
	return m.terminal(ctx, alertID, actor, domain.StatusResolved)
}

// Dismiss closes the alert as not actionable. Dismissing an already
// dismissed alert is a no-op.
func (m *Manager) Dismiss(ctx context.Context, alertID, actor string) (domain.Alert, error) {
	return m.terminal(ctx, alertID, actor, domain.StatusDismissed)
}

func (m *Manager) terminal(ctx context.Context, alertID, actor string, target domain.AlertStatus) (domain.Alert, error) {
	// The first load only locates the pair. The transition decision is
	// made on a fresh copy under the pair lock, so a concurrent resolve
	// or refresh cannot be clobbered by a stale record.
	a, found, err := m.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("load alert %s: %w", alertID, err)
	}
	if !found {
		return domain.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
	}

	l := m.pairLock(pairKey(a.LocationID, a.Hazard))
	l.Lock()
	defer l.Unlock()

	a, found, err = m.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("load alert %s: %w", alertID, err)
	}
	if !found {
		return domain.Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
	}

	if a.Status == target {
		return a, nil
	}
	if a.Status != domain.StatusActive {
		return domain.Alert{}, fmt.Errorf("%w: %s is %s", ErrAlertClosed, alertID, a.Status)
	}

	if err := m.close(ctx, &a, target, actor); err != nil {
		return domain.Alert{}, err
	}

	event := "resolved"
	if target == domain.StatusDismissed {
		event = "dismissed"
	}
	m.logger.Info("alert closed",
		"alert", a.ID, "status", a.Status, "actor", actor)
	m.publish(ctx, event, a)
	return a, nil
}

// close moves an active alert to a terminal status and records the
// closure instant for cooldown tracking. Caller holds the pair lock.
func (m *Manager) close(ctx context.Context, a *domain.Alert, target domain.AlertStatus, actor string) error {
	now := m.clock.Now().UTC()
	a.Status = target
	a.ResolvedAt = &now
	a.ResolvedBy = actor
	a.UpdatedAt = now

	if err := m.alerts.UpdateAlert(ctx, *a); err != nil {
		return fmt.Errorf("close alert %s: %w", a.ID, err)
	}

	key := pairKey(a.LocationID, a.Hazard)
	m.mu.Lock()
	m.closedAt[key] = now
	delete(m.severityChanged, key)
	m.mu.Unlock()

	m.metrics.AlertTransitions.WithLabelValues(string(target)).Inc()
	m.syncActiveGauge(ctx)
	return nil
}

func (m *Manager) recordSeverityChange(key string, at time.Time) {
	m.mu.Lock()
	m.severityChanged[key] = at
	m.mu.Unlock()
}

// lastSeverityChange falls back to the alert's creation instant when no
// change has been recorded for the pair, e.g. after a restart.
func (m *Manager) lastSeverityChange(key string, fallback time.Time) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.severityChanged[key]; ok {
		return t
	}
	return fallback
}

func (m *Manager) publish(ctx context.Context, eventType string, a domain.Alert) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishAlertEvent(ctx, eventType, a); err != nil {
		// Publication is best effort; alert state is already durable.
		m.logger.Warn("alert event publication failed",
			"alert", a.ID, "event", eventType, "error", err)
	}
}

func (m *Manager) syncActiveGauge(ctx context.Context) {
	active, err := m.alerts.ActiveAlerts(ctx)
	if err != nil {
		return
	}
	m.metrics.ActiveAlerts.Set(float64(len(active)))
}
