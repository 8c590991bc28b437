package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RequiredFeatureKinds are the measurement kinds a model input is built
// from, in schema order. Temporal features are appended after them.
var RequiredFeatureKinds = []MeasurementKind{
	KindWaterLevel,
	KindWaveHeight,
	KindWindSpeed,
	KindWindDirection,
	KindAirPressure,
	KindWaterTemperature,
}

// FeatureSchema is the fixed, ordered feature name list consumed by
// risk models: the six required kinds plus hour_of_day and day_of_year.
func FeatureSchema() []string {
	names := make([]string, 0, len(RequiredFeatureKinds)+2)
	for _, k := range RequiredFeatureKinds {
		names = append(names, string(k))
	}
	return append(names, "hour_of_day", "day_of_year")
}

// featureDefaults fill in absent-but-tolerated features so a model still
// receives a complete vector. The values are climatological neutrals.
var featureDefaults = map[MeasurementKind]float64{
	KindWaterLevel:       0.0,
	KindWaveHeight:       1.0,
	KindWindSpeed:        5.0,
	KindWindDirection:    180.0,
	KindAirPressure:      1013.25,
	KindWaterTemperature: 15.0,
}

// FeatureVector is a fixed-schema numeric snapshot for one location at
// one instant. Ephemeral: assembled on demand and referenced by the
// assessment that consumed it via Hash, never persisted itself.
type FeatureVector struct {
	LocationID string
	AsOf       time.Time
	Values     map[string]float64
	Absent     []string // feature names filled from defaults, sorted
}

// Names returns the sorted feature names present in the vector.
func (fv FeatureVector) Names() []string {
	names := make([]string, 0, len(fv.Values))
	for name := range fv.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hash returns a deterministic digest of the vector contents, recorded
// on the assessment for auditability.
func (fv FeatureVector) Hash() string {
	var b strings.Builder
	b.WriteString(fv.LocationID)
	b.WriteByte('|')
	b.WriteString(fv.AsOf.UTC().Format(time.RFC3339))
	for _, name := range fv.Names() {
		fmt.Fprintf(&b, "|%s=%g", name, fv.Values[name])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "fv-" + hex.EncodeToString(sum[:8])
}

// AssemblyConfig bounds feature assembly.
type AssemblyConfig struct {
	// StalenessWindow is the maximum age of a reading still eligible
	// for assembly, measured back from the as-of instant.
	StalenessWindow time.Duration

	// MaxAbsentFraction is the largest tolerated fraction of required
	// features filled from defaults before assembly fails with
	// ErrInsufficientData.
	MaxAbsentFraction float64
}

// AssembleFeatures builds a feature vector for a location from the
// latest reading per kind. Suspect and stale readings are treated as
// absent and replaced by defaults. Temporal features derive from asOf,
// not from reading timestamps, so scoring cadence stays decoupled from
// ingestion cadence.
func AssembleFeatures(locationID string, asOf time.Time, latest map[MeasurementKind]Reading, cfg AssemblyConfig) (FeatureVector, error) {
	values := make(map[string]float64, len(RequiredFeatureKinds)+2)
	var absent []string

	cutoff := asOf.Add(-cfg.StalenessWindow)
	for _, kind := range RequiredFeatureKinds {
		r, ok := latest[kind]
		usable := ok &&
			r.Quality == QualityOK &&
			!r.Timestamp.After(asOf) &&
			!r.Timestamp.Before(cutoffOrZero(cutoff, cfg.StalenessWindow))
		if usable {
			values[string(kind)] = r.Value
			continue
		}
		values[string(kind)] = featureDefaults[kind]
		absent = append(absent, string(kind))
	}

	if frac := float64(len(absent)) / float64(len(RequiredFeatureKinds)); frac > cfg.MaxAbsentFraction {
		return FeatureVector{}, fmt.Errorf("%w: %d of %d required features absent for %s",
			ErrInsufficientData, len(absent), len(RequiredFeatureKinds), locationID)
	}

	values["hour_of_day"] = float64(asOf.UTC().Hour())
	values["day_of_year"] = float64(asOf.UTC().YearDay())

	sort.Strings(absent)
	return FeatureVector{
		LocationID: locationID,
		AsOf:       asOf,
		Values:     values,
		Absent:     absent,
	}, nil
}

// cutoffOrZero disables the staleness cutoff when no window is set.
func cutoffOrZero(cutoff time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return cutoff
}
