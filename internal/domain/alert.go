package domain

import (
	"fmt"
	"time"
)

// HazardType classifies the condition an alert tracks.
type HazardType string

const (
	HazardCoastalFlooding HazardType = "coastal_flooding"
	HazardHighWaves       HazardType = "high_waves"
	HazardStormSurge      HazardType = "storm_surge"
	HazardGeneral         HazardType = "general"
)

// AlertSeverity is derived from the triggering assessment's risk level.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityUrgent   AlertSeverity = "urgent"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus tracks the alert lifecycle. Resolved and dismissed are
// terminal for a given episode.
type AlertStatus string

const (
	StatusActive    AlertStatus = "active"
	StatusResolved  AlertStatus = "resolved"
	StatusDismissed AlertStatus = "dismissed"
)

// Alert is a tracked hazard episode. Status and resolution fields are
// mutated only through the alert manager's state machine.
type Alert struct {
	ID           string        `json:"id"`
	LocationID   string        `json:"location_id"`
	Hazard       HazardType    `json:"hazard"`
	Severity     AlertSeverity `json:"severity"`
	Status       AlertStatus   `json:"status"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	AssessmentID string        `json:"assessment_id"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy   string        `json:"resolved_by,omitempty"`
}

// ClassifyHazard derives the hazard type from the dominant feature of
// an assessment. Thresholds follow operational guidance: 5 m water
// level for flooding, 8 m waves, 25 m/s sustained wind for surge.
func ClassifyHazard(features map[string]float64) HazardType {
	switch {
	case features[string(KindWaterLevel)] > 5:
		return HazardCoastalFlooding
	case features[string(KindWaveHeight)] > 8:
		return HazardHighWaves
	case features[string(KindWindSpeed)] > 25:
		return HazardStormSurge
	default:
		return HazardGeneral
	}
}

// SeverityFor maps a risk level to an alert severity.
func SeverityFor(level RiskLevel) AlertSeverity {
	switch level {
	case LevelCritical:
		return SeverityCritical
	case LevelHigh:
		return SeverityUrgent
	default:
		return SeverityWarning
	}
}

// severityRank orders severities so upgrades can be distinguished from
// downgrades during the cooldown window.
var severityRank = map[AlertSeverity]int{
	SeverityWarning:  0,
	SeverityUrgent:   1,
	SeverityCritical: 2,
}

// Outranks reports whether s is strictly more severe than other.
func (s AlertSeverity) Outranks(other AlertSeverity) bool {
	return severityRank[s] > severityRank[other]
}

// AlertTitle builds the human-readable alert title.
func AlertTitle(hazard HazardType, locationName string) string {
	names := map[HazardType]string{
		HazardCoastalFlooding: "Coastal Flooding",
		HazardHighWaves:       "High Waves",
		HazardStormSurge:      "Storm Surge",
		HazardGeneral:         "General Hazard",
	}
	return fmt.Sprintf("%s Alert - %s", names[hazard], locationName)
}

// AlertMessage builds the human-readable alert body from the triggering
// assessment.
func AlertMessage(locationName string, a RiskAssessment) string {
	return fmt.Sprintf(
		"High risk detected at %s. Risk score %.2f (%s). Review current conditions and take appropriate action.",
		locationName, a.Score, a.Level,
	)
}
