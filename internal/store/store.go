// Package store defines the persistence contracts for readings,
// assessments, and alerts, plus an in-memory implementation. A Postgres
// implementation lives in internal/adapter/postgres; both satisfy the
// same interfaces so the pipeline never knows which one it runs on.
package store

import (
	"context"
	"time"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// ReadingStore persists sensor readings. Inserts are keyed by
// (location, kind, timestamp, source) with insert-if-absent semantics,
// which is what makes ingestion retry-safe.
type ReadingStore interface {
	// InsertReadings writes the given readings, silently skipping any
	// whose idempotency key already exists. Returns the number of
	// readings actually inserted.
	InsertReadings(ctx context.Context, readings []domain.Reading) (int, error)

	// LatestReadings returns, per measurement kind, the reading with
	// the greatest timestamp at or before asOf for the location.
	LatestReadings(ctx context.Context, locationID string, asOf time.Time) (map[domain.MeasurementKind]domain.Reading, error)

	// DeleteReadingsBefore removes readings older than cutoff, except
	// for locations listed in keepAfter, whose readings at or after the
	// given instant are preserved regardless of cutoff.
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time, keepAfter map[string]time.Time) (int, error)
}

// AssessmentStore persists risk assessments, append-only per location.
type AssessmentStore interface {
	InsertAssessment(ctx context.Context, a domain.RiskAssessment) error

	// LatestAssessment returns the most recent assessment for a
	// location, with found=false when none exists.
	LatestAssessment(ctx context.Context, locationID string) (domain.RiskAssessment, bool, error)

	GetAssessment(ctx context.Context, id string) (domain.RiskAssessment, bool, error)

	// DeleteAssessmentsBefore removes assessments older than cutoff,
	// except those whose IDs appear in keep (active alert lineage).
	DeleteAssessmentsBefore(ctx context.Context, cutoff time.Time, keep map[string]struct{}) (int, error)
}

// AlertStore persists alerts. Status mutation goes exclusively through
// the alert manager; the store only reads and writes whole records.
type AlertStore interface {
	InsertAlert(ctx context.Context, a domain.Alert) error
	UpdateAlert(ctx context.Context, a domain.Alert) error
	GetAlert(ctx context.Context, id string) (domain.Alert, bool, error)

	// ActiveAlert returns the active alert for (location, hazard), if
	// any. At most one may exist at a time.
	ActiveAlert(ctx context.Context, locationID string, hazard domain.HazardType) (domain.Alert, bool, error)

	ActiveAlerts(ctx context.Context) ([]domain.Alert, error)

	// DeleteClosedAlertsBefore removes resolved and dismissed alerts
	// whose resolution predates cutoff.
	DeleteClosedAlertsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Store bundles the three persistence contracts.
type Store interface {
	ReadingStore
	AssessmentStore
	AlertStore
}
