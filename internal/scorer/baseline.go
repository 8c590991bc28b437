package scorer

import (
	"context"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// BaselineVersion identifies the built-in heuristic model. It is always
// registered so the pipeline can score even when no trained artifact is
// deployed.
const BaselineVersion = "baseline-v1"

// baselineWeights blend the normalized hazard drivers into a single
// probability. Normalization ceilings sit just above the operational
// hazard thresholds so a reading at the threshold lands near the top of
// its component's range.
const (
	waterLevelCeiling = 8.0  // meters
	waveHeightCeiling = 10.0 // meters
	windSpeedCeiling  = 35.0 // m/s
	pressureDropSpan  = 50.0 // hPa below standard atmosphere

	waterLevelWeight = 0.40
	waveHeightWeight = 0.25
	windSpeedWeight  = 0.25
	pressureWeight   = 0.10

	standardPressure = 1013.25
)

// Baseline is a deterministic heuristic risk model. Identical inputs
// always yield identical scores; the pipeline never fabricates risk
// from randomness.
type Baseline struct{}

func NewBaseline() Baseline { return Baseline{} }

func (Baseline) Version() string { return BaselineVersion }

func (Baseline) FeatureSchema() []string { return domain.FeatureSchema() }

func (Baseline) Score(_ context.Context, fv domain.FeatureVector) (float64, error) {
	score := waterLevelWeight*unit(fv.Values[string(domain.KindWaterLevel)]/waterLevelCeiling) +
		waveHeightWeight*unit(fv.Values[string(domain.KindWaveHeight)]/waveHeightCeiling) +
		windSpeedWeight*unit(fv.Values[string(domain.KindWindSpeed)]/windSpeedCeiling) +
		pressureWeight*unit((standardPressure-fv.Values[string(domain.KindAirPressure)])/pressureDropSpan)
	return unit(score), nil
}

// unit clamps to [0,1].
func unit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
