package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/alert"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/adapter/provider"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/ingest"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/observability"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/scorer"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/store"
)

// scriptedProvider returns the same observations on every fetch.
type scriptedProvider struct {
	name string
	obs  []provider.RawObservation
	err  error
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Observations(context.Context, string, time.Time) ([]provider.RawObservation, error) {
	return p.obs, p.err
}

func stormObservations(now time.Time) []provider.RawObservation {
	ts := now.Add(-10 * time.Minute)
	return []provider.RawObservation{
		{Kind: domain.KindWaterLevel, Value: 6.5, Unit: "m", Timestamp: ts},
		{Kind: domain.KindWaveHeight, Value: 9.0, Unit: "m", Timestamp: ts},
		{Kind: domain.KindWindSpeed, Value: 30.0, Unit: "m/s", Timestamp: ts},
		{Kind: domain.KindWindDirection, Value: 180.0, Unit: "deg", Timestamp: ts},
		{Kind: domain.KindAirPressure, Value: 980.0, Unit: "hPa", Timestamp: ts},
		{Kind: domain.KindWaterTemperature, Value: 15.0, Unit: "C", Timestamp: ts},
	}
}

func calmObservations(now time.Time) []provider.RawObservation {
	ts := now.Add(-10 * time.Minute)
	return []provider.RawObservation{
		{Kind: domain.KindWaterLevel, Value: 0.2, Unit: "m", Timestamp: ts},
		{Kind: domain.KindWaveHeight, Value: 0.5, Unit: "m", Timestamp: ts},
		{Kind: domain.KindWindSpeed, Value: 3.0, Unit: "m/s", Timestamp: ts},
		{Kind: domain.KindWindDirection, Value: 90.0, Unit: "deg", Timestamp: ts},
		{Kind: domain.KindAirPressure, Value: 1015.0, Unit: "hPa", Timestamp: ts},
		{Kind: domain.KindWaterTemperature, Value: 16.0, Unit: "C", Timestamp: ts},
	}
}

type fixture struct {
	scheduler *Scheduler
	store     *store.Memory
	clock     *clockwork.FakeClock
}

func testSchedulerConfig() Config {
	return Config{
		IngestInterval:      5 * time.Minute,
		ScoreInterval:       15 * time.Minute,
		CleanupInterval:     6 * time.Hour,
		CycleTimeout:        time.Minute,
		ReadingRetention:    720 * time.Hour,
		AssessmentRetention: 2160 * time.Hour,
		AlertRetention:      720 * time.Hour,
		StalenessWindow:     6 * time.Hour,
	}
}

func newFixture(t *testing.T, p provider.Client, cfg Config) *fixture {
	t.Helper()
	mem := store.NewMemory()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	// One attempt: the fake clock never advances, so backoff sleeps
	// would block forever.
	ing := ingest.New([]provider.Client{p}, mem, ingest.Config{
		Window:         time.Hour,
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, clock, logger, metrics)

	sc := scorer.New(mem, mem, scorer.NewBaseline(), scorer.Config{
		Bands:        domain.DefaultRiskBands,
		Assembly:     domain.AssemblyConfig{StalenessWindow: 6 * time.Hour, MaxAbsentFraction: 0.5},
		ModelTimeout: time.Second,
	}, clock, logger, metrics)

	alerts := alert.NewManager(mem, alert.Config{
		Threshold:        domain.LevelHigh,
		Cooldown:         30 * time.Minute,
		AutoResolveAfter: 3,
	}, clock, logger, metrics, nil)

	locations := []domain.Location{
		{ID: "loc-a", Name: "Galveston Pier 21", StationIDs: map[string]string{"noaa": "st-1"}, Active: true},
	}

	s := New(ing, sc, alerts, mem, locations, cfg, clock, logger, metrics)
	return &fixture{scheduler: s, store: mem, clock: clock}
}

func TestPipeline_StormRaisesFloodingAlert(t *testing.T) {
	p := &scriptedProvider{name: "noaa"}
	f := newFixture(t, p, testSchedulerConfig())
	p.obs = stormObservations(f.clock.Now())
	ctx := context.Background()

	require.NoError(t, f.scheduler.ingestCycle(ctx))
	require.NoError(t, f.scheduler.scoreCycle(ctx))

	active, err := f.store.ActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.HazardCoastalFlooding, active[0].Hazard)
	assert.Equal(t, domain.SeverityCritical, active[0].Severity)

	a, found, err := f.store.GetAssessment(ctx, active[0].AssessmentID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.LevelCritical, a.Level)
	assert.Greater(t, a.Score, 0.8)
}

func TestPipeline_CalmConditionsRaiseNothing(t *testing.T) {
	p := &scriptedProvider{name: "noaa"}
	f := newFixture(t, p, testSchedulerConfig())
	p.obs = calmObservations(f.clock.Now())
	ctx := context.Background()

	require.NoError(t, f.scheduler.ingestCycle(ctx))
	require.NoError(t, f.scheduler.scoreCycle(ctx))

	active, err := f.store.ActiveAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	a, found, err := f.store.LatestAssessment(ctx, "loc-a")
	require.NoError(t, err)
	require.True(t, found, "assessment is still recorded")
	assert.Equal(t, domain.LevelLow, a.Level)
}

func TestIngestCycle_TotalFailureFailsStage(t *testing.T) {
	p := &scriptedProvider{name: "noaa", err: domain.ErrProviderUnavailable}
	f := newFixture(t, p, testSchedulerConfig())

	err := f.scheduler.ingestCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 1, f.scheduler.Health().DegradedPairs())
}

func TestScoreCycle_AllSkippedFailsStage(t *testing.T) {
	p := &scriptedProvider{name: "noaa"}
	f := newFixture(t, p, testSchedulerConfig())

	// No readings ingested: assembly falls back to too many defaults.
	err := f.scheduler.scoreCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestCleanupCycle_PreservesActiveAlertLineage(t *testing.T) {
	p := &scriptedProvider{name: "noaa"}
	f := newFixture(t, p, testSchedulerConfig())
	ctx := context.Background()
	now := f.clock.Now()

	// Two readings far past retention: one inside the active alert's
	// lineage window, one well before it. The triggering assessment is
	// past assessment retention too, so only the keep set saves it.
	lineageTS := now.Add(-f.scheduler.cfg.AssessmentRetention).Add(-2 * time.Hour)
	ancientTS := lineageTS.Add(-48 * time.Hour)
	_, err := f.store.InsertReadings(ctx, []domain.Reading{
		{ID: "rd-lineage", LocationID: "loc-a", Kind: domain.KindWaterLevel, Value: 6.0, Timestamp: lineageTS, Source: "noaa", Quality: domain.QualityOK},
		{ID: "rd-ancient", LocationID: "loc-a", Kind: domain.KindWaveHeight, Value: 2.0, Timestamp: ancientTS, Source: "noaa", Quality: domain.QualityOK},
	})
	require.NoError(t, err)

	triggering := domain.RiskAssessment{
		ID:         "as-old",
		LocationID: "loc-a",
		Score:      0.85,
		Level:      domain.LevelCritical,
		CreatedAt:  lineageTS.Add(time.Hour),
	}
	require.NoError(t, f.store.InsertAssessment(ctx, triggering))
	require.NoError(t, f.store.InsertAlert(ctx, domain.Alert{
		ID:           "al-active",
		LocationID:   "loc-a",
		Hazard:       domain.HazardCoastalFlooding,
		Status:       domain.StatusActive,
		AssessmentID: "as-old",
		CreatedAt:    triggering.CreatedAt,
	}))

	// A long-closed alert past retention should go.
	closedAt := now.Add(-f.scheduler.cfg.AlertRetention).Add(-time.Hour)
	require.NoError(t, f.store.InsertAlert(ctx, domain.Alert{
		ID:         "al-closed",
		LocationID: "loc-a",
		Hazard:     domain.HazardHighWaves,
		Status:     domain.StatusResolved,
		ResolvedAt: &closedAt,
		CreatedAt:  closedAt.Add(-time.Hour),
	}))

	require.NoError(t, f.scheduler.cleanupCycle(ctx))

	latest, err := f.store.LatestReadings(ctx, "loc-a", now)
	require.NoError(t, err)
	assert.Contains(t, latest, domain.KindWaterLevel, "lineage reading survives retention")
	assert.NotContains(t, latest, domain.KindWaveHeight, "reading outside lineage is removed")

	_, found, err := f.store.GetAssessment(ctx, "as-old")
	require.NoError(t, err)
	assert.True(t, found, "triggering assessment of an active alert survives")

	_, found, err = f.store.GetAlert(ctx, "al-closed")
	require.NoError(t, err)
	assert.False(t, found, "closed alert past retention is removed")

	_, found, err = f.store.GetAlert(ctx, "al-active")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCleanupCycle_OldAssessmentsRemoved(t *testing.T) {
	p := &scriptedProvider{name: "noaa"}
	f := newFixture(t, p, testSchedulerConfig())
	ctx := context.Background()

	old := domain.RiskAssessment{
		ID:         "as-stale",
		LocationID: "loc-a",
		CreatedAt:  f.clock.Now().Add(-f.scheduler.cfg.AssessmentRetention).Add(-time.Hour),
	}
	require.NoError(t, f.store.InsertAssessment(ctx, old))

	require.NoError(t, f.scheduler.cleanupCycle(ctx))

	_, found, err := f.store.GetAssessment(ctx, "as-stale")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunStage_RecordsHealth(t *testing.T) {
	p := &scriptedProvider{name: "noaa"}
	f := newFixture(t, p, testSchedulerConfig())
	ctx := context.Background()

	h := f.scheduler.Health()
	require.Error(t, h.CheckReadiness(), "not ready before any cycles")

	f.scheduler.runStage(ctx, StageScore, func(context.Context) error { return nil })
	require.Error(t, h.CheckReadiness(), "scoring alone does not make the service ready")

	f.scheduler.runStage(ctx, StageIngest, func(context.Context) error { return nil })
	assert.NoError(t, h.CheckReadiness(), "one successful ingest cycle is enough")

	f.scheduler.runStage(ctx, StageIngest, func(context.Context) error { return errors.New("boom") })
	assert.NoError(t, h.CheckReadiness(), "a later failure does not revoke readiness")
	assert.Equal(t, "boom", h.Snapshot()[StageIngest].LastError)
	assert.False(t, h.Snapshot()[StageIngest].LastSuccess.IsZero())
}

func TestRun_StopsOnCancel(t *testing.T) {
	p := &scriptedProvider{name: "noaa"}
	f := newFixture(t, p, testSchedulerConfig())
	p.obs = calmObservations(f.clock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()

	// Let the three loops reach their tickers, then stop.
	f.clock.BlockUntil(3)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	assert.NoError(t, f.scheduler.Health().CheckReadiness(), "startup ingest cycle ran before the loops")

	// The startup score pass follows the startup ingest, so it finds
	// readings instead of failing with too many absent features.
	_, found, err := f.store.LatestAssessment(context.Background(), "loc-a")
	require.NoError(t, err)
	assert.True(t, found, "first score pass had ingested readings to assess")
	assert.False(t, f.scheduler.Health().Snapshot()[StageScore].LastSuccess.IsZero())
}
