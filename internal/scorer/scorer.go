package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/observability"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/store"
)

// Config bounds one scoring pass.
type Config struct {
	Bands    domain.RiskBands
	Assembly domain.AssemblyConfig

	// ModelTimeout caps a single Score invocation. A model that blows
	// the deadline fails that location's cycle with
	// ErrModelInferenceFailure; no score is invented in its place.
	ModelTimeout time.Duration
}

// Scorer produces risk assessments from the latest stored readings.
type Scorer struct {
	readings    store.ReadingStore
	assessments store.AssessmentStore
	model       domain.Model
	cfg         Config
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics
}

func New(readings store.ReadingStore, assessments store.AssessmentStore, model domain.Model, cfg Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scorer {
	return &Scorer{
		readings:    readings,
		assessments: assessments,
		model:       model,
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
	}
}

// Skip records why one location produced no assessment this cycle.
type Skip struct {
	LocationID string
	Err        error
}

// Report summarizes one scoring cycle.
type Report struct {
	Assessed []domain.RiskAssessment
	Skipped  []Skip
}

// RunCycle scores every location. Locations with insufficient data or a
// failing model are skipped and reported; the rest still score.
func (s *Scorer) RunCycle(ctx context.Context, locations []domain.Location) Report {
	var report Report
	for _, loc := range locations {
		a, err := s.ScoreLocation(ctx, loc)
		if err != nil {
			s.metrics.ScoringFailures.WithLabelValues(skipReason(err)).Inc()
			s.logger.Warn("scoring skipped", "location", loc.ID, "error", err)
			report.Skipped = append(report.Skipped, Skip{LocationID: loc.ID, Err: err})
			continue
		}
		report.Assessed = append(report.Assessed, a)
	}
	return report
}

// ScoreLocation assembles features for the location as of now, runs the
// model, and persists the resulting assessment.
func (s *Scorer) ScoreLocation(ctx context.Context, loc domain.Location) (domain.RiskAssessment, error) {
	now := s.clock.Now().UTC()

	latest, err := s.readings.LatestReadings(ctx, loc.ID, now)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("load latest readings for %s: %w", loc.ID, err)
	}

	fv, err := domain.AssembleFeatures(loc.ID, now, latest, s.cfg.Assembly)
	if err != nil {
		return domain.RiskAssessment{}, err
	}

	if err := s.checkSchema(fv); err != nil {
		return domain.RiskAssessment{}, err
	}

	score, err := s.invoke(ctx, fv)
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	if score < 0 || score > 1 {
		return domain.RiskAssessment{}, fmt.Errorf("%w: model %s returned score %g outside [0,1]",
			domain.ErrModelInferenceFailure, s.model.Version(), score)
	}

	a := domain.RiskAssessment{
		ID:           "as-" + uuid.NewString(),
		LocationID:   loc.ID,
		Score:        score,
		Level:        s.cfg.Bands.LevelFor(score),
		ModelVersion: s.model.Version(),
		FeatureHash:  fv.Hash(),
		Features:     fv.Values,
		CreatedAt:    now,
	}
	if err := s.assessments.InsertAssessment(ctx, a); err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("persist assessment for %s: %w", loc.ID, err)
	}

	s.metrics.AssessmentsTotal.WithLabelValues(string(a.Level)).Inc()
	s.logger.Info("location scored",
		"location", loc.ID,
		"score", a.Score,
		"level", a.Level,
		"model", a.ModelVersion,
		"absent_features", fv.Absent,
	)
	return a, nil
}

// checkSchema verifies the assembled vector carries exactly the features
// the model declares, by name.
func (s *Scorer) checkSchema(fv domain.FeatureVector) error {
	want := append([]string(nil), s.model.FeatureSchema()...)
	sort.Strings(want)
	got := fv.Names()

	if len(want) != len(got) {
		return fmt.Errorf("%w: model %s expects %d features, vector has %d",
			domain.ErrSchemaMismatch, s.model.Version(), len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: model %s expects feature %q, vector has %q",
				domain.ErrSchemaMismatch, s.model.Version(), want[i], got[i])
		}
	}
	return nil
}

// invoke runs the model under the configured deadline. The goroutine
// shields the cycle from models that ignore context cancellation.
func (s *Scorer) invoke(ctx context.Context, fv domain.FeatureVector) (float64, error) {
	if s.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ModelTimeout)
		defer cancel()
	}

	type result struct {
		score float64
		err   error
	}
	ch := make(chan result, 1)
	started := time.Now()
	go func() {
		score, err := s.model.Score(ctx, fv)
		ch <- result{score, err}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: model %s: %v", domain.ErrModelInferenceFailure, s.model.Version(), ctx.Err())
	case res := <-ch:
		s.metrics.ModelInferenceDuration.Observe(time.Since(started).Seconds())
		if res.err != nil {
			if errors.Is(res.err, domain.ErrModelInferenceFailure) {
				return 0, res.err
			}
			return 0, fmt.Errorf("%w: model %s: %v", domain.ErrModelInferenceFailure, s.model.Version(), res.err)
		}
		return res.score, nil
	}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, domain.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, domain.ErrModelLoadFailure):
		return "model_load"
	case errors.Is(err, domain.ErrModelInferenceFailure):
		return "inference"
	default:
		return "other"
	}
}
