// Package http exposes the service's operational HTTP surface: health,
// readiness, Prometheus metrics, and a status snapshot of the pipeline.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tirth1356/coastal-alert-system-4stack/internal/scheduler"
	"github.com/tirth1356/coastal-alert-system-4stack/internal/store"
)

// ReadinessChecker reports whether the pipeline can serve. A non-nil
// error means not ready.
type ReadinessChecker interface {
	CheckReadiness() error
}

// StatusSource provides the pipeline state for the status endpoint.
type StatusSource interface {
	Snapshot() map[string]scheduler.StageStatus
	DegradedPairs() int
}

// Server exposes health, readiness, metrics, and status HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the operational routes. alerts may be nil to omit
// active alert counts from the status payload.
func NewServer(addr string, ready ReadinessChecker, status StatusSource, alerts store.AlertStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if err := ready.CheckReadiness(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /status", s.statusHandler(status, alerts))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

type statusResponse struct {
	Stages        map[string]scheduler.StageStatus `json:"stages"`
	DegradedPairs int                              `json:"degraded_pairs"`
	ActiveAlerts  int                              `json:"active_alerts"`
}

func (s *Server) statusHandler(status StatusSource, alerts store.AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Stages:        status.Snapshot(),
			DegradedPairs: status.DegradedPairs(),
		}
		if alerts != nil {
			active, err := alerts.ActiveAlerts(r.Context())
			if err != nil {
				s.logger.Error("status: listing active alerts failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				return
			}
			resp.ActiveAlerts = len(active)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
