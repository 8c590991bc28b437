package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// monitoring pipeline.
type Metrics struct {
	ReadingsIngested prometheus.Counter
	IngestFailures   *prometheus.CounterVec // labels: provider, reason={unavailable,malformed}
	DegradedPairs    prometheus.Gauge

	CycleRuns     *prometheus.CounterVec   // labels: stage={ingest,score,cleanup}, outcome={success,error,timeout}
	CycleDuration *prometheus.HistogramVec // labels: stage

	AssessmentsTotal       *prometheus.CounterVec // labels: level
	ScoringFailures        *prometheus.CounterVec // labels: reason={insufficient_data,schema_mismatch,model_load,inference}
	ModelInferenceDuration prometheus.Histogram

	AlertTransitions *prometheus.CounterVec // labels: transition={created,updated,resolved,dismissed,suppressed}
	ActiveAlerts     prometheus.Gauge

	RecordsCleaned *prometheus.CounterVec // labels: entity={readings,assessments,alerts}
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal_monitor",
			Name:      "readings_ingested_total",
			Help:      "Total readings written to the reading store.",
		}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal_monitor",
			Name:      "ingest_failures_total",
			Help:      "Ingestion failures by provider and reason.",
		}, []string{"provider", "reason"}),
		DegradedPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coastal_monitor",
			Name:      "degraded_pairs",
			Help:      "Number of (location, provider) pairs marked degraded in the last ingest cycle.",
		}),
		CycleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal_monitor",
			Name:      "cycle_runs_total",
			Help:      "Scheduler cycle executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coastal_monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a scheduler cycle by stage.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal_monitor",
			Name:      "assessments_total",
			Help:      "Risk assessments produced by discretized level.",
		}, []string{"level"}),
		ScoringFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal_monitor",
			Name:      "scoring_failures_total",
			Help:      "Skipped assessments by reason.",
		}, []string{"reason"}),
		ModelInferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coastal_monitor",
			Name:      "model_inference_duration_seconds",
			Help:      "Duration of model Score invocations.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		AlertTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal_monitor",
			Name:      "alert_transitions_total",
			Help:      "Alert state machine transitions.",
		}, []string{"transition"}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coastal_monitor",
			Name:      "active_alerts",
			Help:      "Number of currently active alerts.",
		}),
		RecordsCleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal_monitor",
			Name:      "records_cleaned_total",
			Help:      "Records removed by retention cleanup, by entity.",
		}, []string{"entity"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the
// default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReadingsIngested,
		m.IngestFailures,
		m.DegradedPairs,
		m.CycleRuns,
		m.CycleDuration,
		m.AssessmentsTotal,
		m.ScoringFailures,
		m.ModelInferenceDuration,
		m.AlertTransitions,
		m.ActiveAlerts,
		m.RecordsCleaned,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
