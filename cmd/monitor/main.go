package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	httpadapter "github.com/tirth1356/coastal-alert-system-4stack/internal/adapter/http"
	kafkaadapter "github.com/tirth1356/coastal-alert-system-4stack/internal/adapter/kafka"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/adapter/postgres"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/adapter/provider"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/alert"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/config"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/domain"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/ingest"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/observability"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/scheduler"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/scorer"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/store"
)

func main() {
	// A local .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	locations, err := config.LoadLocations(cfg.LocationsFile)
	if err != nil {
		logger.Error("failed to load location roster", "error", err)
		os.Exit(1)
	}
	active := config.ActiveLocations(locations)
	logger.Info("location roster loaded", "total", len(locations), "active", len(active))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store selection: Postgres when DATABASE_URL is set, otherwise the
	// in-memory store for single-node deployments.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to migrate schema", "error", err)
			os.Exit(1)
		}
		st = pg
		logger.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logger.Info("using in-memory store")
	}

	providers := []provider.Client{
		provider.NewNOAAClient(cfg.NOAABaseURL, cfg.ProviderTimeout, clock, logger),
		provider.NewUSGSClient(cfg.USGSBaseURL, cfg.ProviderTimeout, logger),
	}

	ingestor := ingest.New(providers, st, ingest.Config{
		Window:         cfg.IngestWindow,
		MaxAttempts:    cfg.ProviderMaxAttempts,
		InitialBackoff: cfg.RetryInitialBackoff,
		MaxBackoff:     cfg.RetryMaxBackoff,
	}, clock, logger, metrics)

	registry := scorer.NewRegistry()
	registry.Register(scorer.NewBaseline())
	if cfg.ModelArtifactPath != "" {
		linear, err := scorer.LoadLinear(cfg.ModelArtifactPath)
		if err != nil {
			logger.Error("failed to load model artifact", "path", cfg.ModelArtifactPath, "error", err)
			os.Exit(1)
		}
		registry.Register(linear)
		logger.Info("model artifact loaded", "version", linear.Version())
	}
	model, err := registry.Get(cfg.ModelVersion)
	if err != nil {
		logger.Error("failed to select model", "version", cfg.ModelVersion, "error", err)
		os.Exit(1)
	}
	logger.Info("model selected", "version", model.Version())

	sc := scorer.New(st, st, model, scorer.Config{
		Bands: cfg.RiskBands,
		Assembly: domain.AssemblyConfig{
			StalenessWindow:   cfg.StalenessWindow,
			MaxAbsentFraction: cfg.MaxAbsentFraction,
		},
		ModelTimeout: cfg.ModelTimeout,
	}, clock, logger, metrics)

	// Alert event publishing is feature-flagged via KAFKA_BROKERS /
	// KAFKA_ENABLED.
	var publisher alert.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		publisher = kafkaPublisher
		logger.Info("kafka alert events enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka alert events disabled")
	}

	alerts := alert.NewManager(st, alert.Config{
		Threshold:        cfg.AlertThreshold,
		Cooldown:         cfg.AlertCooldown,
		AutoResolve:      cfg.AlertAutoResolve,
		AutoResolveAfter: cfg.AlertAutoResolveAfter,
	}, clock, logger, metrics, publisher)

	sched := scheduler.New(ingestor, sc, alerts, st, active, scheduler.Config{
		IngestInterval:      cfg.IngestInterval,
		ScoreInterval:       cfg.ScoreInterval,
		CleanupInterval:     cfg.CleanupInterval,
		CycleTimeout:        cfg.CycleTimeout,
		ReadingRetention:    cfg.ReadingRetention,
		AssessmentRetention: cfg.AssessmentRetention,
		AlertRetention:      cfg.AlertRetention,
		StalenessWindow:     cfg.StalenessWindow,
	}, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, sched.Health(), sched.Health(), st, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop within the shutdown timeout")
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
