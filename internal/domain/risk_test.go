package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskBands_LevelFor(t *testing.T) {
	bands := DefaultRiskBands

	tests := []struct {
		score    float64
		expected RiskLevel
	}{
		{0.0, LevelLow},
		{0.29, LevelLow},
		{0.3, LevelMedium},
		{0.59, LevelMedium},
		{0.6, LevelHigh},
		{0.75, LevelHigh},
		{0.8, LevelCritical},
		{1.0, LevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, bands.LevelFor(tt.score), "score %g", tt.score)
	}
}

func TestRiskBands_Validate(t *testing.T) {
	require.NoError(t, DefaultRiskBands.Validate())

	assert.Error(t, RiskBands{Medium: 0.6, High: 0.3, Critical: 0.8}.Validate())
	assert.Error(t, RiskBands{Medium: 0, High: 0.6, Critical: 0.8}.Validate())
	assert.Error(t, RiskBands{Medium: 0.3, High: 0.6, Critical: 1.2}.Validate())
}

func TestRiskLevel_AtLeast(t *testing.T) {
	assert.True(t, LevelCritical.AtLeast(LevelHigh))
	assert.True(t, LevelHigh.AtLeast(LevelHigh))
	assert.False(t, LevelMedium.AtLeast(LevelHigh))
	assert.True(t, LevelLow.AtLeast(LevelLow))
}
