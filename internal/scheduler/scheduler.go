// Package scheduler drives the monitoring pipeline: periodic ingest,
// score, and cleanup loops with per-cycle deadlines and health
// bookkeeping. Each stage runs at most one cycle at a time; a slow
// cycle drops ticks instead of piling up.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/alert"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/ingest"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/observability"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/scorer"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/store"
)

// Config holds the loop cadences and retention windows.
type Config struct {
	IngestInterval  time.Duration
	ScoreInterval   time.Duration
	CleanupInterval time.Duration

	// CycleTimeout caps a single cycle of any stage.
	CycleTimeout time.Duration

	ReadingRetention    time.Duration
	AssessmentRetention time.Duration
	AlertRetention      time.Duration

	// StalenessWindow mirrors the feature assembly window. Readings
	// within it before an active alert's triggering assessment are part
	// of that alert's lineage and survive cleanup.
	StalenessWindow time.Duration
}

// Scheduler owns the three pipeline loops.
type Scheduler struct {
	ingestor *ingest.Ingestor
	scorer   *scorer.Scorer
	alerts   *alert.Manager
	st       store.Store

	locations []domain.Location
	byID      map[string]domain.Location

	cfg     Config
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	health  *Health
}

func New(ingestor *ingest.Ingestor, sc *scorer.Scorer, alerts *alert.Manager, st store.Store, locations []domain.Location, cfg Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	byID := make(map[string]domain.Location, len(locations))
	for _, loc := range locations {
		byID[loc.ID] = loc
	}
	return &Scheduler{
		ingestor:  ingestor,
		scorer:    sc,
		alerts:    alerts,
		st:        st,
		locations: locations,
		byID:      byID,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		health:    NewHealth(),
	}
}

// Health exposes the scheduler's health state for readiness probes.
func (s *Scheduler) Health() *Health {
	return s.health
}

// Run blocks until ctx is cancelled, driving all three loops. The
// first ingest cycle runs before the loops start, so the service
// becomes ready without waiting a full interval and the first score
// pass has readings to work from; cleanup waits for its first tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.runStage(ctx, StageIngest, s.ingestCycle)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.loop(ctx, StageIngest, s.cfg.IngestInterval, s.ingestCycle, false)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, StageScore, s.cfg.ScoreInterval, s.scoreCycle, true)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, StageCleanup, s.cfg.CleanupInterval, s.cleanupCycle, false)
	}()
	wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, stage string, interval time.Duration, fn func(context.Context) error, immediate bool) {
	if immediate {
		s.runStage(ctx, stage, fn)
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.runStage(ctx, stage, fn)
		}
	}
}

// runStage runs one cycle under the configured deadline and records
// outcome metrics and health state.
func (s *Scheduler) runStage(ctx context.Context, stage string, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	cctx := ctx
	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	start := s.clock.Now()
	err := fn(cctx)
	now := s.clock.Now()
	s.metrics.CycleDuration.WithLabelValues(stage).Observe(now.Sub(start).Seconds())

	outcome := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	s.metrics.CycleRuns.WithLabelValues(stage, outcome).Inc()

	if err != nil {
		s.health.RecordError(stage, err, now)
		s.logger.Error("cycle failed", "stage", stage, "outcome", outcome, "error", err)
		return
	}
	s.health.RecordSuccess(stage, now)
}

// ingestCycle runs one ingestion pass. Pair failures are expected and
// tracked as degradation; the cycle itself only fails when nothing at
// all could be ingested despite failures being present.
func (s *Scheduler) ingestCycle(ctx context.Context) error {
	report := s.ingestor.RunCycle(ctx, s.locations)
	s.health.SetDegradedPairs(len(report.DegradedPairs()))

	if len(report.Failures) > 0 && report.Ingested == 0 && report.Fetched == 0 {
		return fmt.Errorf("ingest produced nothing: %w", report.Err())
	}
	return nil
}

// scoreCycle scores every location and feeds qualifying assessments to
// the alert manager.
func (s *Scheduler) scoreCycle(ctx context.Context) error {
	report := s.scorer.RunCycle(ctx, s.locations)

	for _, a := range report.Assessed {
		loc, ok := s.byID[a.LocationID]
		if !ok {
			continue
		}
		outcome, err := s.alerts.Evaluate(ctx, loc, a)
		if err != nil {
			s.logger.Error("alert evaluation failed", "location", a.LocationID, "error", err)
			continue
		}
		if outcome != alert.OutcomeNone {
			s.logger.Info("alert evaluation", "location", a.LocationID, "outcome", outcome)
		}
	}

	if len(report.Skipped) > 0 && len(report.Assessed) == 0 {
		return fmt.Errorf("all %d locations skipped, first: %w", len(report.Skipped), report.Skipped[0].Err)
	}
	return nil
}

// cleanupCycle applies retention, never touching records an active
// alert still depends on: the triggering assessment stays, and so do
// the location's readings from that assessment's instant onward.
func (s *Scheduler) cleanupCycle(ctx context.Context) error {
	now := s.clock.Now().UTC()

	active, err := s.st.ActiveAlerts(ctx)
	if err != nil {
		return fmt.Errorf("list active alerts: %w", err)
	}

	keepAssessments := make(map[string]struct{}, len(active))
	keepReadingsAfter := make(map[string]time.Time)
	for _, al := range active {
		keepAssessments[al.AssessmentID] = struct{}{}
		a, found, err := s.st.GetAssessment(ctx, al.AssessmentID)
		if err != nil {
			return fmt.Errorf("load assessment %s: %w", al.AssessmentID, err)
		}
		if !found {
			continue
		}
		lineageStart := a.CreatedAt.Add(-s.cfg.StalenessWindow)
		if t, ok := keepReadingsAfter[al.LocationID]; !ok || lineageStart.Before(t) {
			keepReadingsAfter[al.LocationID] = lineageStart
		}
	}

	readings, err := s.st.DeleteReadingsBefore(ctx, now.Add(-s.cfg.ReadingRetention), keepReadingsAfter)
	if err != nil {
		return fmt.Errorf("clean readings: %w", err)
	}
	assessments, err := s.st.DeleteAssessmentsBefore(ctx, now.Add(-s.cfg.AssessmentRetention), keepAssessments)
	if err != nil {
		return fmt.Errorf("clean assessments: %w", err)
	}
	alerts, err := s.st.DeleteClosedAlertsBefore(ctx, now.Add(-s.cfg.AlertRetention))
	if err != nil {
		return fmt.Errorf("clean alerts: %w", err)
	}

	s.metrics.RecordsCleaned.WithLabelValues("readings").Add(float64(readings))
	s.metrics.RecordsCleaned.WithLabelValues("assessments").Add(float64(assessments))
	s.metrics.RecordsCleaned.WithLabelValues("alerts").Add(float64(alerts))
	s.logger.Info("retention cleanup finished",
		"readings", readings, "assessments", assessments, "alerts", alerts)
	return nil
}
