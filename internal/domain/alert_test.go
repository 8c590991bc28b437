package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHazard(t *testing.T) {
	tests := []struct {
		name     string
		features map[string]float64
		expected HazardType
	}{
		{"high water level", map[string]float64{"water_level": 6.0, "wave_height": 3.0}, HazardCoastalFlooding},
		{"high waves", map[string]float64{"water_level": 2.0, "wave_height": 9.5}, HazardHighWaves},
		{"strong wind", map[string]float64{"water_level": 2.0, "wave_height": 4.0, "wind_speed": 28}, HazardStormSurge},
		{"nothing dominant", map[string]float64{"water_level": 1.0, "wave_height": 2.0, "wind_speed": 10}, HazardGeneral},
		{"water level wins over waves", map[string]float64{"water_level": 5.5, "wave_height": 9.0}, HazardCoastalFlooding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyHazard(tt.features))
		})
	}
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityFor(LevelCritical))
	assert.Equal(t, SeverityUrgent, SeverityFor(LevelHigh))
	assert.Equal(t, SeverityWarning, SeverityFor(LevelMedium))
	assert.Equal(t, SeverityWarning, SeverityFor(LevelLow))
}

func TestSeverity_Outranks(t *testing.T) {
	assert.True(t, SeverityCritical.Outranks(SeverityUrgent))
	assert.True(t, SeverityUrgent.Outranks(SeverityWarning))
	assert.False(t, SeverityWarning.Outranks(SeverityWarning))
	assert.False(t, SeverityWarning.Outranks(SeverityCritical))
}

func TestAlertTitleAndMessage(t *testing.T) {
	title := AlertTitle(HazardCoastalFlooding, "Galveston Pier 21")
	assert.Equal(t, "Coastal Flooding Alert - Galveston Pier 21", title)

	msg := AlertMessage("Galveston Pier 21", RiskAssessment{Score: 0.82, Level: LevelCritical})
	assert.Contains(t, msg, "Galveston Pier 21")
	assert.Contains(t, msg, "0.82")
	assert.Contains(t, msg, "critical")
}
