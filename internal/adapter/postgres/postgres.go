// Package postgres is the pgx-backed Store for multi-node deployments.
// It mirrors the in-memory store's semantics exactly: idempotent
// reading inserts, latest-per-kind queries, and lineage-aware retention
// deletes.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// Store implements store.Store on a Postgres pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id          TEXT PRIMARY KEY,
			location_id TEXT NOT NULL,
			kind        TEXT NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			unit        TEXT NOT NULL DEFAULT '',
			ts          TIMESTAMPTZ NOT NULL,
			source      TEXT NOT NULL,
			quality     TEXT NOT NULL,
			UNIQUE (location_id, kind, ts, source)
		)`,
		`CREATE INDEX IF NOT EXISTS readings_latest_idx
			ON readings (location_id, kind, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS assessments (
			id            TEXT PRIMARY KEY,
			location_id   TEXT NOT NULL,
			score         DOUBLE PRECISION NOT NULL,
			level         TEXT NOT NULL,
			model_version TEXT NOT NULL,
			feature_hash  TEXT NOT NULL,
			features      JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS assessments_location_idx
			ON assessments (location_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id            TEXT PRIMARY KEY,
			location_id   TEXT NOT NULL,
			hazard        TEXT NOT NULL,
			severity      TEXT NOT NULL,
			status        TEXT NOT NULL,
			title         TEXT NOT NULL,
			message       TEXT NOT NULL,
			assessment_id TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL,
			resolved_at   TIMESTAMPTZ,
			resolved_by   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS alerts_one_active_idx
			ON alerts (location_id, hazard) WHERE status = 'active'`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertReadings(ctx context.Context, readings []domain.Reading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO readings (id, location_id, kind, value, unit, ts, source, quality)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (location_id, kind, ts, source) DO NOTHING`
	for _, r := range readings {
		batch.Queue(query, r.ID, r.LocationID, string(r.Kind), r.Value, r.Unit, r.Timestamp, r.Source, string(r.Quality))
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	inserted := 0
	for range readings {
		tag, err := res.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert readings: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (s *Store) LatestReadings(ctx context.Context, locationID string, asOf time.Time) (map[domain.MeasurementKind]domain.Reading, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT ON (kind) id, location_id, kind, value, unit, ts, source, quality
FROM readings
WHERE location_id = $1 AND ts <= $2
ORDER BY kind, ts DESC`, locationID, asOf)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	defer rows.Close()

	latest := make(map[domain.MeasurementKind]domain.Reading)
	for rows.Next() {
		var r domain.Reading
		var kind, quality string
		if err := rows.Scan(&r.ID, &r.LocationID, &kind, &r.Value, &r.Unit, &r.Timestamp, &r.Source, &quality); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Kind = domain.MeasurementKind(kind)
		r.Quality = domain.QualityFlag(quality)
		latest[r.Kind] = r
	}
	return latest, rows.Err()
}

func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time, keepAfter map[string]time.Time) (int, error) {
	protected := make([]string, 0, len(keepAfter))
	for locationID := range keepAfter {
		protected = append(protected, locationID)
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM readings WHERE ts < $1 AND location_id != ALL($2)`,
		cutoff, protected)
	if err != nil {
		return 0, fmt.Errorf("delete readings: %w", err)
	}
	deleted := int(tag.RowsAffected())

	for locationID, keep := range keepAfter {
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM readings WHERE location_id = $1 AND ts < $2 AND ts < $3`,
			locationID, cutoff, keep)
		if err != nil {
			return deleted, fmt.Errorf("delete readings for %s: %w", locationID, err)
		}
		deleted += int(tag.RowsAffected())
	}
	return deleted, nil
}

func (s *Store) InsertAssessment(ctx context.Context, a domain.RiskAssessment) error {
	features, err := json.Marshal(a.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO assessments (id, location_id, score, level, model_version, feature_hash, features, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.LocationID, a.Score, string(a.Level), a.ModelVersion, a.FeatureHash, features, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *Store) LatestAssessment(ctx context.Context, locationID string) (domain.RiskAssessment, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, location_id, score, level, model_version, feature_hash, features, created_at
FROM assessments
WHERE location_id = $1
ORDER BY created_at DESC
LIMIT 1`, locationID)
	return scanAssessment(row)
}

func (s *Store) GetAssessment(ctx context.Context, id string) (domain.RiskAssessment, bool, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, location_id, score, level, model_version, feature_hash, features, created_at
FROM assessments
WHERE id = $1`, id)
	return scanAssessment(row)
}

func scanAssessment(row pgx.Row) (domain.RiskAssessment, bool, error) {
	var a domain.RiskAssessment
	var level string
	var features []byte
	err := row.Scan(&a.ID, &a.LocationID, &a.Score, &level, &a.ModelVersion, &a.FeatureHash, &features, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return domain.RiskAssessment{}, false, nil
	}
	if err != nil {
		return domain.RiskAssessment{}, false, fmt.Errorf("scan assessment: %w", err)
	}
	a.Level = domain.RiskLevel(level)
	if err := json.Unmarshal(features, &a.Features); err != nil {
		return domain.RiskAssessment{}, false, fmt.Errorf("unmarshal features: %w", err)
	}
	return a, true, nil
}

func (s *Store) DeleteAssessmentsBefore(ctx context.Context, cutoff time.Time, keep map[string]struct{}) (int, error) {
	keepIDs := make([]string, 0, len(keep))
	for id := range keep {
		keepIDs = append(keepIDs, id)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM assessments WHERE created_at < $1 AND id != ALL($2)`,
		cutoff, keepIDs)
	if err != nil {
		return 0, fmt.Errorf("delete assessments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) InsertAlert(ctx context.Context, a domain.Alert) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO alerts (id, location_id, hazard, severity, status, title, message, assessment_id, created_at, updated_at, resolved_at, resolved_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.LocationID, string(a.Hazard), string(a.Severity), string(a.Status),
		a.Title, a.Message, a.AssessmentID, a.CreatedAt, a.UpdatedAt, a.ResolvedAt, a.ResolvedBy)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *Store) UpdateAlert(ctx context.Context, a domain.Alert) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE alerts
SET severity = $2, status = $3, message = $4, assessment_id = $5,
    updated_at = $6, resolved_at = $7, resolved_by = $8
WHERE id = $1`,
		a.ID, string(a.Severity), string(a.Status), a.Message, a.AssessmentID,
		a.UpdatedAt, a.ResolvedAt, a.ResolvedBy)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s not found", a.ID)
	}
	return nil
}

const alertColumns = `id, location_id, hazard, severity, status, title, message, assessment_id, created_at, updated_at, resolved_at, resolved_by`

func (s *Store) GetAlert(ctx context.Context, id string) (domain.Alert, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	return scanAlert(row)
}

func (s *Store) ActiveAlert(ctx context.Context, locationID string, hazard domain.HazardType) (domain.Alert, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts
WHERE location_id = $1 AND hazard = $2 AND status = 'active'`,
		locationID, string(hazard))
	return scanAlert(row)
}

func (s *Store) ActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		a, _, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanAlert(row pgx.Row) (domain.Alert, bool, error) {
	var a domain.Alert
	var hazard, severity, status string
	err := row.Scan(&a.ID, &a.LocationID, &hazard, &severity, &status, &a.Title, &a.Message,
		&a.AssessmentID, &a.CreatedAt, &a.UpdatedAt, &a.ResolvedAt, &a.ResolvedBy)
	if err == pgx.ErrNoRows {
		return domain.Alert{}, false, nil
	}
	if err != nil {
		return domain.Alert{}, false, fmt.Errorf("scan alert: %w", err)
	}
	a.Hazard = domain.HazardType(hazard)
	a.Severity = domain.AlertSeverity(severity)
	a.Status = domain.AlertStatus(status)
	return a, true, nil
}

func (s *Store) DeleteClosedAlertsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM alerts WHERE status != 'active' AND resolved_at IS NOT NULL AND resolved_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete closed alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
