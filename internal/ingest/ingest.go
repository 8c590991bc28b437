// Package ingest pulls raw observations from provider clients,
// normalizes them into canonical readings, and writes them to the
// reading store. Each (location, provider) pair is fetched and retried
// independently so one provider outage never starves the others.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/adapter/provider"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/observability"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/store"
)

// Config bounds retry behavior for one (location, provider) fetch.
type Config struct {
	// Window is how far back each fetch reaches.
	Window time.Duration

	// MaxAttempts caps retries of transient provider failures. Once
	// exhausted the pair is marked degraded for the cycle and skipped.
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Ingestor runs ingestion cycles against a set of provider clients.
type Ingestor struct {
	providers []provider.Client
	readings  store.ReadingStore
	cfg       Config
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates an Ingestor.
func New(providers []provider.Client, readings store.ReadingStore, cfg Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{
		providers: providers,
		readings:  readings,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// RunCycle ingests one window of observations for every location.
// Locations run in parallel; providers within a location run in
// sequence. The returned report is complete even when pairs failed;
// partial failure is the expected steady state, not an error.
func (i *Ingestor) RunCycle(ctx context.Context, locations []domain.Location) CycleReport {
	start := i.clock.Now()
	report := CycleReport{
		StartedAt:    start,
		MissingKinds: make(map[string][]domain.MeasurementKind),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, loc := range locations {
		wg.Add(1)
		go func(loc domain.Location) {
			defer wg.Done()
			fetched, ingested, seen, failures := i.ingestLocation(ctx, loc, start)

			mu.Lock()
			defer mu.Unlock()
			report.Fetched += fetched
			report.Ingested += ingested
			report.Failures = append(report.Failures, failures...)
			if missing := missingRequiredKinds(seen); len(missing) > 0 {
				report.MissingKinds[loc.ID] = missing
			}
		}(loc)
	}
	wg.Wait()

	report.Duration = i.clock.Now().Sub(start)
	i.metrics.DegradedPairs.Set(float64(len(report.DegradedPairs())))

	i.logger.Info("ingest cycle finished",
		"fetched", report.Fetched,
		"ingested", report.Ingested,
		"failures", len(report.Failures),
		"degraded", report.DegradedPairs(),
		"duration", report.Duration,
	)
	return report
}

// ingestLocation fetches every provider that covers the location and
// writes the normalized readings. Returns the kinds observed so the
// cycle report can flag required kinds that stayed missing.
func (i *Ingestor) ingestLocation(ctx context.Context, loc domain.Location, asOf time.Time) (fetched, ingested int, seen map[domain.MeasurementKind]bool, failures []PairFailure) {
	seen = make(map[domain.MeasurementKind]bool)
	since := asOf.Add(-i.cfg.Window)

	for _, p := range i.providers {
		station := loc.Station(p.Name())
		if station == "" {
			continue
		}

		obs, err := i.fetchWithRetry(ctx, p, station)
		if err != nil {
			degraded := errors.Is(err, domain.ErrProviderUnavailable)
			reason := "unavailable"
			if errors.Is(err, domain.ErrProviderDataMalformed) {
				reason = "malformed"
			}
			i.metrics.IngestFailures.WithLabelValues(p.Name(), reason).Inc()
			i.logger.Warn("provider fetch failed",
				"location", loc.ID, "provider", p.Name(), "degraded", degraded, "error", err)
			failures = append(failures, PairFailure{LocationID: loc.ID, Provider: p.Name(), Err: err, Degraded: degraded})
			continue
		}

		readings := make([]domain.Reading, 0, len(obs))
		for _, o := range obs {
			if o.Timestamp.Before(since) {
				continue
			}
			seen[o.Kind] = true
			readings = append(readings, domain.Reading{
				ID:         domain.ReadingID(loc.ID, o.Kind, o.Timestamp, p.Name()),
				LocationID: loc.ID,
				Kind:       o.Kind,
				Value:      o.Value,
				Unit:       o.Unit,
				Timestamp:  o.Timestamp.UTC(),
				Source:     p.Name(),
				Quality:    domain.QualityFor(o.Kind, o.Value),
			})
		}
		fetched += len(readings)

		n, err := i.readings.InsertReadings(ctx, readings)
		if err != nil {
			failures = append(failures, PairFailure{LocationID: loc.ID, Provider: p.Name(), Err: err})
			continue
		}
		ingested += n
		i.metrics.ReadingsIngested.Add(float64(n))
	}

	return fetched, ingested, seen, failures
}

// fetchWithRetry retries transient provider failures with exponential
// backoff up to the attempt cap. Malformed payloads are permanent and
// returned immediately.
func (i *Ingestor) fetchWithRetry(ctx context.Context, p provider.Client, station string) ([]provider.RawObservation, error) {
	backoff := i.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= i.cfg.MaxAttempts; attempt++ {
		obs, err := p.Observations(ctx, station, i.clock.Now().Add(-i.cfg.Window))
		if err == nil {
			return obs, nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrProviderUnavailable) || attempt == i.cfg.MaxAttempts {
			break
		}
		if !i.sleep(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff, i.cfg.MaxBackoff)
	}
	return nil, lastErr
}

func (i *Ingestor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-i.clock.After(d):
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// missingRequiredKinds returns the required kinds with no observation
// this cycle, in schema order.
func missingRequiredKinds(seen map[domain.MeasurementKind]bool) []domain.MeasurementKind {
	var missing []domain.MeasurementKind
	for _, kind := range domain.RequiredFeatureKinds {
		if !seen[kind] {
			missing = append(missing, kind)
		}
	}
	return missing
}
