package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "locations.yml", cfg.LocationsFile)
	assert.Empty(t, cfg.DatabaseURL)

	assert.Equal(t, 30*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 3, cfg.ProviderMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryInitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.RetryMaxBackoff)
	assert.Equal(t, time.Hour, cfg.IngestWindow)

	assert.Equal(t, 5*time.Minute, cfg.IngestInterval)
	assert.Equal(t, 15*time.Minute, cfg.ScoreInterval)
	assert.Equal(t, 6*time.Hour, cfg.CleanupInterval)

	assert.Equal(t, 6*time.Hour, cfg.StalenessWindow)
	assert.Equal(t, 0.5, cfg.MaxAbsentFraction)

	assert.Equal(t, "baseline-v1", cfg.ModelVersion)
	assert.Equal(t, 5*time.Second, cfg.ModelTimeout)
	assert.Equal(t, domain.DefaultRiskBands, cfg.RiskBands)

	assert.Equal(t, domain.LevelHigh, cfg.AlertThreshold)
	assert.Equal(t, 30*time.Minute, cfg.AlertCooldown, "cooldown derives from 2x score interval")
	assert.False(t, cfg.AlertAutoResolve)
	assert.Equal(t, 3, cfg.AlertAutoResolveAfter)

	assert.Equal(t, 720*time.Hour, cfg.ReadingRetention)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOCATIONS_FILE", "/etc/coastal/locations.yml")
	t.Setenv("DATABASE_URL", "postgres://coastal@db/coastal")
	t.Setenv("INGEST_INTERVAL", "1m")
	t.Setenv("SCORE_INTERVAL", "2m")
	t.Setenv("ALERT_COOLDOWN", "45s")
	t.Setenv("ALERT_THRESHOLD", "medium")
	t.Setenv("ALERT_AUTO_RESOLVE", "true")
	t.Setenv("ALERT_AUTO_RESOLVE_AFTER", "5")
	t.Setenv("MODEL_VERSION", "surge-linear-v2")
	t.Setenv("MODEL_ARTIFACT_PATH", "/models/surge-linear-v2.json")
	t.Setenv("RISK_BAND_MEDIUM", "0.2")
	t.Setenv("RISK_BAND_HIGH", "0.5")
	t.Setenv("RISK_BAND_CRITICAL", "0.9")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/etc/coastal/locations.yml", cfg.LocationsFile)
	assert.Equal(t, "postgres://coastal@db/coastal", cfg.DatabaseURL)
	assert.Equal(t, time.Minute, cfg.IngestInterval)
	assert.Equal(t, 45*time.Second, cfg.AlertCooldown)
	assert.Equal(t, domain.LevelMedium, cfg.AlertThreshold)
	assert.True(t, cfg.AlertAutoResolve)
	assert.Equal(t, 5, cfg.AlertAutoResolveAfter)
	assert.Equal(t, "surge-linear-v2", cfg.ModelVersion)
	assert.Equal(t, "/models/surge-linear-v2.json", cfg.ModelArtifactPath)
	assert.Equal(t, domain.RiskBands{Medium: 0.2, High: 0.5, Critical: 0.9}, cfg.RiskBands)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("INGEST_INTERVAL", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_INTERVAL")
}

func TestLoad_NegativeDuration(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_IngestSlowerThanScore(t *testing.T) {
	t.Setenv("INGEST_INTERVAL", "30m")
	t.Setenv("SCORE_INTERVAL", "5m")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_INTERVAL")
}

func TestLoad_InvalidBands(t *testing.T) {
	t.Setenv("RISK_BAND_MEDIUM", "0.7")
	t.Setenv("RISK_BAND_HIGH", "0.5")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidThreshold(t *testing.T) {
	t.Setenv("ALERT_THRESHOLD", "catastrophic")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_THRESHOLD")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidMaxAttempts(t *testing.T) {
	t.Setenv("PROVIDER_MAX_ATTEMPTS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROVIDER_MAX_ATTEMPTS")
}
