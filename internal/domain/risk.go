package domain

import (
	"fmt"
	"time"
)

// RiskLevel is the discretized form of a model score.
type RiskLevel string

const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// rank orders risk levels for threshold comparisons.
var levelRank = map[RiskLevel]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// AtLeast reports whether l is at or above the threshold level.
func (l RiskLevel) AtLeast(threshold RiskLevel) bool {
	return levelRank[l] >= levelRank[threshold]
}

// RiskBands are the fixed score edges used to discretize a score into a
// level: low < Medium ≤ medium < High ≤ high < Critical ≤ critical.
type RiskBands struct {
	Medium   float64
	High     float64
	Critical float64
}

// DefaultRiskBands are the operational defaults.
var DefaultRiskBands = RiskBands{Medium: 0.3, High: 0.6, Critical: 0.8}

// Validate rejects band edges that are out of [0,1] or unordered.
func (b RiskBands) Validate() error {
	if b.Medium <= 0 || b.Medium >= b.High || b.High >= b.Critical || b.Critical > 1 {
		return fmt.Errorf("invalid risk bands: medium=%g high=%g critical=%g", b.Medium, b.High, b.Critical)
	}
	return nil
}

// LevelFor discretizes a score in [0,1].
func (b RiskBands) LevelFor(score float64) RiskLevel {
	switch {
	case score < b.Medium:
		return LevelLow
	case score < b.High:
		return LevelMedium
	case score < b.Critical:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// RiskAssessment is a model's scored output for a location at a point
// in time. Immutable once created; history is append-only per location.
type RiskAssessment struct {
	ID           string             `json:"id"`
	LocationID   string             `json:"location_id"`
	Score        float64            `json:"score"`
	Level        RiskLevel          `json:"level"`
	ModelVersion string             `json:"model_version"`
	FeatureHash  string             `json:"feature_hash"`
	Features     map[string]float64 `json:"features"`
	CreatedAt    time.Time          `json:"created_at"`
}
