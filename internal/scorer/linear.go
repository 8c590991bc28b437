package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// linearArtifact is the on-disk JSON shape of a trained linear model:
//
//	{
//	  "version": "surge-linear-v2",
//	  "features": ["water_level", ...],
//	  "weights": {"water_level": 1.8, ...},
//	  "bias": -2.1
//	}
type linearArtifact struct {
	Version  string             `json:"version"`
	Features []string           `json:"features"`
	Weights  map[string]float64 `json:"weights"`
	Bias     float64            `json:"bias"`
}

// Linear is a logistic model loaded from a JSON artifact. Score is the
// sigmoid of the weighted feature sum, so it is always in (0,1).
type Linear struct {
	version  string
	features []string
	weights  map[string]float64
	bias     float64
}

// LoadLinear reads a linear model artifact from disk. Load problems of
// any kind wrap ErrModelLoadFailure.
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact %s: %v", domain.ErrModelLoadFailure, path, err)
	}

	var art linearArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: parse artifact %s: %v", domain.ErrModelLoadFailure, path, err)
	}
	if art.Version == "" {
		return nil, fmt.Errorf("%w: artifact %s declares no version", domain.ErrModelLoadFailure, path)
	}
	if len(art.Features) == 0 {
		return nil, fmt.Errorf("%w: artifact %s declares no features", domain.ErrModelLoadFailure, path)
	}
	for _, name := range art.Features {
		if _, ok := art.Weights[name]; !ok {
			return nil, fmt.Errorf("%w: artifact %s has no weight for feature %q", domain.ErrModelLoadFailure, path, name)
		}
	}

	return &Linear{
		version:  art.Version,
		features: art.Features,
		weights:  art.Weights,
		bias:     art.Bias,
	}, nil
}

func (m *Linear) Version() string { return m.version }

func (m *Linear) FeatureSchema() []string {
	schema := make([]string, len(m.features))
	copy(schema, m.features)
	return schema
}

func (m *Linear) Score(_ context.Context, fv domain.FeatureVector) (float64, error) {
	sum := m.bias
	for _, name := range m.features {
		sum += m.weights[name] * fv.Values[name]
	}
	return 1 / (1 + math.Exp(-sum)), nil
}
