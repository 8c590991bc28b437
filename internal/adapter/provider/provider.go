// Package provider contains clients for the external observation
// networks the pipeline ingests from. Each client maps its provider's
// wire format into kind-tagged raw observations; unit normalization and
// quality flagging happen later, in the ingestion adapter.
package provider

import (
	"context"
	"time"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// RawObservation is one provider record after field mapping but before
// validation. Values keep the provider's units; Unit says which.
type RawObservation struct {
	Kind      domain.MeasurementKind
	Value     float64
	Unit      string
	Timestamp time.Time
}

// Client fetches recent observations for one station of one provider.
//
// Failure contract: network errors, timeouts, and 5xx responses wrap
// domain.ErrProviderUnavailable (transient, retried); an undecodable
// payload wraps domain.ErrProviderDataMalformed (permanent, skipped).
// Individual unparseable records within an otherwise valid payload are
// dropped, not fatal.
type Client interface {
	// Name identifies the provider; it becomes the Source field of
	// stored readings and half of the (location, provider) failure key.
	Name() string

	// Observations returns the station's observations since the given
	// instant.
	Observations(ctx context.Context, stationID string, since time.Time) ([]RawObservation, error)
}
