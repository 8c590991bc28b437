// Package config loads service settings from environment variables and
// the location roster from a YAML file. Every tuning knob the pipeline
// uses (retry caps, cooldowns, retention windows, band edges) is an
// explicit config value so tests can shrink them deterministically.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
)

// Config holds all service settings, populated from environment
// variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	LocationsFile string
	DatabaseURL   string // empty selects the in-memory store

	// Provider settings.
	NOAABaseURL         string
	USGSBaseURL         string
	ProviderTimeout     time.Duration
	ProviderMaxAttempts int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	IngestWindow        time.Duration

	// Cadences. Ingestion runs faster than scoring; cleanup slowest.
	IngestInterval  time.Duration
	ScoreInterval   time.Duration
	CleanupInterval time.Duration
	CycleTimeout    time.Duration

	// Feature assembly.
	StalenessWindow   time.Duration
	MaxAbsentFraction float64

	// Model selection and scoring.
	ModelVersion      string
	ModelArtifactPath string
	ModelTimeout      time.Duration
	RiskBands         domain.RiskBands

	// Alerting.
	AlertThreshold        domain.RiskLevel
	AlertCooldown         time.Duration // 0 derives 2× the score interval
	AlertAutoResolve      bool
	AlertAutoResolveAfter int

	// Retention.
	ReadingRetention    time.Duration
	AssessmentRetention time.Duration
	AlertRetention      time.Duration

	// Optional alert event publishing.
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool
}

// Load reads configuration from environment variables, applying
// defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:      envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		LogFormat:     envOrDefault("LOG_FORMAT", "json"),
		LocationsFile: envOrDefault("LOCATIONS_FILE", "locations.yml"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		NOAABaseURL:  os.Getenv("NOAA_BASE_URL"),
		USGSBaseURL:  os.Getenv("USGS_BASE_URL"),
		ModelVersion: envOrDefault("MODEL_VERSION", "baseline-v1"),

		ModelArtifactPath: os.Getenv("MODEL_ARTIFACT_PATH"),

		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "coastal-alert-events"),
	}

	var err error
	durations := []struct {
		dst  *time.Duration
		name string
		def  string
	}{
		{&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", "10s"},
		{&cfg.ProviderTimeout, "PROVIDER_TIMEOUT", "30s"},
		{&cfg.RetryInitialBackoff, "RETRY_INITIAL_BACKOFF", "500ms"},
		{&cfg.RetryMaxBackoff, "RETRY_MAX_BACKOFF", "10s"},
		{&cfg.IngestWindow, "INGEST_WINDOW", "1h"},
		{&cfg.IngestInterval, "INGEST_INTERVAL", "5m"},
		{&cfg.ScoreInterval, "SCORE_INTERVAL", "15m"},
		{&cfg.CleanupInterval, "CLEANUP_INTERVAL", "6h"},
		{&cfg.CycleTimeout, "CYCLE_TIMEOUT", "4m"},
		{&cfg.StalenessWindow, "STALENESS_WINDOW", "6h"},
		{&cfg.ModelTimeout, "MODEL_TIMEOUT", "5s"},
		{&cfg.ReadingRetention, "READING_RETENTION", "720h"},
		{&cfg.AssessmentRetention, "ASSESSMENT_RETENTION", "2160h"},
		{&cfg.AlertRetention, "ALERT_RETENTION", "720h"},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.name, d.def); err != nil {
			return nil, err
		}
	}

	cooldown := envOrDefault("ALERT_COOLDOWN", "")
	if cooldown != "" {
		if cfg.AlertCooldown, err = time.ParseDuration(cooldown); err != nil || cfg.AlertCooldown < 0 {
			return nil, errors.New("invalid ALERT_COOLDOWN")
		}
	} else {
		cfg.AlertCooldown = 2 * cfg.ScoreInterval
	}

	if cfg.ProviderMaxAttempts, err = parseInt("PROVIDER_MAX_ATTEMPTS", 3, 1, 10); err != nil {
		return nil, err
	}
	if cfg.AlertAutoResolveAfter, err = parseInt("ALERT_AUTO_RESOLVE_AFTER", 3, 1, 100); err != nil {
		return nil, err
	}
	cfg.AlertAutoResolve = os.Getenv("ALERT_AUTO_RESOLVE") == "true"

	if cfg.MaxAbsentFraction, err = parseFraction("FEATURE_MAX_ABSENT_FRACTION", 0.5); err != nil {
		return nil, err
	}

	cfg.RiskBands = domain.DefaultRiskBands
	if cfg.RiskBands.Medium, err = parseFraction("RISK_BAND_MEDIUM", cfg.RiskBands.Medium); err != nil {
		return nil, err
	}
	if cfg.RiskBands.High, err = parseFraction("RISK_BAND_HIGH", cfg.RiskBands.High); err != nil {
		return nil, err
	}
	if cfg.RiskBands.Critical, err = parseFraction("RISK_BAND_CRITICAL", cfg.RiskBands.Critical); err != nil {
		return nil, err
	}
	if err := cfg.RiskBands.Validate(); err != nil {
		return nil, err
	}

	threshold := domain.RiskLevel(envOrDefault("ALERT_THRESHOLD", string(domain.LevelHigh)))
	switch threshold {
	case domain.LevelLow, domain.LevelMedium, domain.LevelHigh, domain.LevelCritical:
		cfg.AlertThreshold = threshold
	default:
		return nil, fmt.Errorf("invalid ALERT_THRESHOLD %q", threshold)
	}

	brokers := parseList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaBrokers = brokers
	cfg.KafkaEnabled = len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.KafkaEnabled = v == "true"
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	if cfg.IngestInterval > cfg.ScoreInterval {
		return nil, errors.New("INGEST_INTERVAL must not exceed SCORE_INTERVAL")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d,%d]", key, min, max)
	}
	return n, nil
}

func parseFraction(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, fmt.Errorf("invalid %s: must be a number in [0,1]", key)
	}
	return f, nil
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
