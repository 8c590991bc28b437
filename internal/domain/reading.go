package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// MeasurementKind enumerates the sensor measurement types the pipeline
// understands. Unknown kinds are stored but never used for scoring.
type MeasurementKind string

const (
	KindWaterLevel       MeasurementKind = "water_level"
	KindWaveHeight       MeasurementKind = "wave_height"
	KindWindSpeed        MeasurementKind = "wind_speed"
	KindWindDirection    MeasurementKind = "wind_direction"
	KindAirPressure      MeasurementKind = "air_pressure"
	KindWaterTemperature MeasurementKind = "water_temperature"
	KindSalinity         MeasurementKind = "salinity"
	KindDischarge        MeasurementKind = "discharge"
)

// QualityFlag describes the trustworthiness of a reading.
type QualityFlag string

const (
	QualityOK      QualityFlag = "ok"
	QualitySuspect QualityFlag = "suspect"
	QualityMissing QualityFlag = "missing"
)

// ValueRange is the operational range for a measurement kind. Values
// outside the range are flagged suspect, not rejected.
type ValueRange struct {
	Min float64
	Max float64
}

// OperationalRanges holds the per-kind validation ranges used to assign
// quality flags at ingestion.
var OperationalRanges = map[MeasurementKind]ValueRange{
	KindWaterLevel:       {Min: -10, Max: 20},   // meters
	KindWaveHeight:       {Min: 0, Max: 30},     // meters
	KindWindSpeed:        {Min: 0, Max: 100},    // m/s
	KindWindDirection:    {Min: 0, Max: 360},    // degrees
	KindAirPressure:      {Min: 900, Max: 1100}, // mb
	KindWaterTemperature: {Min: -5, Max: 40},    // celsius
	KindSalinity:         {Min: 0, Max: 40},     // ppt
}

// QualityFor returns the quality flag for a value of the given kind.
// Kinds without a configured range are accepted as ok.
func QualityFor(kind MeasurementKind, value float64) QualityFlag {
	r, known := OperationalRanges[kind]
	if !known {
		return QualityOK
	}
	if value < r.Min || value > r.Max {
		return QualitySuspect
	}
	return QualityOK
}

// Location is a coastal monitoring site. Locations are created at
// configuration time and soft-deactivated rather than deleted, so
// stored readings never dangle.
type Location struct {
	ID         string            `yaml:"id" json:"id"`
	Name       string            `yaml:"name" json:"name"`
	Latitude   float64           `yaml:"latitude" json:"latitude"`
	Longitude  float64           `yaml:"longitude" json:"longitude"`
	StationIDs map[string]string `yaml:"stations" json:"stations"` // provider name → station identifier
	Active     bool              `yaml:"active" json:"active"`
}

// Station returns the station identifier this location uses for the
// given provider, or "" if the provider does not cover it.
func (l Location) Station(provider string) string {
	return l.StationIDs[provider]
}

// Reading is one timestamped measurement for a location. Readings are
// immutable once written; "latest" queries take the maximum timestamp
// per (location, kind).
type Reading struct {
	ID         string          `json:"id"`
	LocationID string          `json:"location_id"`
	Kind       MeasurementKind `json:"kind"`
	Value      float64         `json:"value"`
	Unit       string          `json:"unit"`
	Timestamp  time.Time       `json:"timestamp"`
	Source     string          `json:"source"`
	Quality    QualityFlag     `json:"quality"`
}

// Key returns the idempotency key for the reading. No two readings may
// share a key; re-inserting an existing key is a no-op.
func (r Reading) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s", r.LocationID, r.Kind, r.Timestamp.UTC().Unix(), r.Source)
}

// ReadingID produces a deterministic ID from the reading's key fields.
// Deterministic IDs make ingestion idempotent under retry: replaying the
// same observation yields the same ID and the insert becomes a no-op.
func ReadingID(locationID string, kind MeasurementKind, ts time.Time, source string) string {
	input := fmt.Sprintf("%s|%s|%d|%s", locationID, kind, ts.UTC().Unix(), source)
	hash := sha256.Sum256([]byte(input))
	return "rd-" + hex.EncodeToString(hash[:8])
}
