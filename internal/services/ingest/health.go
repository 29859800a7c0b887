package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readyTimeout = 2 * time.Second

	// journalOKAfter is how long the journal write path must be failure-free
	// before the service reports ready again.
	journalOKAfter = 30 * time.Second
)

// StoreProbe reports whether the measurement store can serve queries.
type StoreProbe interface {
	Ready(ctx context.Context) error
}

// BrokerProbe reports whether the intake connection is up.
type BrokerProbe interface {
	IsConnected() bool
}

// JournalProbe reports how long the journal's async write path has been
// failure-free.
type JournalProbe interface {
	LastErrorAge() time.Duration
}

// Server exposes /healthz, /readyz, and /metrics. Liveness always answers;
// readiness requires the intake connection, a reachable store, and a journal
// write path without recent failures.
type Server struct {
	httpServer *http.Server
	store      StoreProbe
	intake     BrokerProbe
	journal    JournalProbe
	log        *slog.Logger
}

func NewServer(addr string, store StoreProbe, intake BrokerProbe, journal JournalProbe, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:   store,
		intake:  intake,
		journal: journal,
		log:     log,
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the mux, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "healthy"}
	if s.journal != nil {
		body["journal_error_free_for"] = s.journal.LastErrorAge().Truncate(time.Second).String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if !s.intake.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "intake broker disconnected",
		})
		return
	}
	if err := s.store.Ready(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	if s.journal != nil && s.journal.LastErrorAge() <= journalOKAfter {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "journal write path degraded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
