package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// PairFailure records why one (location, provider) pair produced no
// readings this cycle. Failures never escalate past the cycle boundary;
// they are aggregated here instead.
type PairFailure struct {
	LocationID string
	Provider   string
	Err        error

	// Degraded is set when the retry budget was exhausted and the pair
	// was skipped for the remainder of the cycle.
	Degraded bool
}

func (f PairFailure) String() string {
	return fmt.Sprintf("%s/%s: %v", f.LocationID, f.Provider, f.Err)
}

// CycleReport summarizes one ingestion cycle.
type CycleReport struct {
	StartedAt time.Time
	Duration  time.Duration
	Fetched   int
	Ingested  int
	Failures  []PairFailure

	// MissingKinds lists, per location, the required measurement kinds
	// for which no provider produced an observation within the window.
	MissingKinds map[string][]domain.MeasurementKind
}

// DegradedPairs returns the "location/provider" keys that exhausted
// their retry budget this cycle.
func (r CycleReport) DegradedPairs() []string {
	var pairs []string
	for _, f := range r.Failures {
		if f.Degraded {
			pairs = append(pairs, f.LocationID+"/"+f.Provider)
		}
	}
	return pairs
}

// Err aggregates all pair failures, or nil if the cycle was clean.
func (r CycleReport) Err() error {
	var merr *multierror.Error
	for _, f := range r.Failures {
		merr = multierror.Append(merr, fmt.Errorf("%s/%s: %w", f.LocationID, f.Provider, f.Err))
	}
	return merr.ErrorOrNil()
}

// Transient reports whether every failure in the report is a transient
// provider outage (as opposed to malformed data or store errors).
func (r CycleReport) Transient() bool {
	for _, f := range r.Failures {
		if !errors.Is(f.Err, domain.ErrProviderUnavailable) {
			return false
		}
	}
	return true
}
