// Package httpapi is the read-only local health/metrics server every
// cmd/* binary starts, grounded on the teacher's
// internal/interfaces/http/server.go (gorilla/mux, request-id/logging/
// timeout middleware, local-only default bind) re-pointed at this
// engine's own health model instead of provider registry health.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/telemetry"
)

// HealthChecker reports the liveness of one component (a venue session,
// the quoting engine's iteration loop, the hedge executor).
type HealthChecker interface {
	Healthy() bool
}

// Config controls the listen address and timeouts.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig mirrors the teacher's local-only bind default.
func DefaultConfig(port int) Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the read-only health/metrics HTTP surface.
type Server struct {
	router  *mux.Router
	server  *http.Server
	metrics *telemetry.Registry
	checks  map[string]HealthChecker
	killed  func() bool
	log     zerolog.Logger
	cfg     Config
}

// New builds the server and wires its routes. checks is consulted on
// every /health request; killed reports the process-wide kill-switch
// state for the same response.
func New(cfg Config, metrics *telemetry.Registry, checks map[string]HealthChecker, killed func() bool, log zerolog.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		metrics: metrics,
		checks:  checks,
		killed:  killed,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Str("request_id", w.Header().Get("X-Request-ID")).
			Dur("duration", time.Since(start)).Msg("http request")
	})
}

type healthResponse struct {
	Status     string          `json:"status"`
	KillSwitch bool            `json:"kill_switch"`
	Checks     map[string]bool `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Checks: make(map[string]bool, len(s.checks))}
	if s.killed != nil {
		resp.KillSwitch = s.killed()
	}
	if resp.KillSwitch {
		resp.Status = "unhealthy"
	}
	for name, checker := range s.checks {
		ok := checker.Healthy()
		resp.Checks[name] = ok
		if !ok {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Start runs the server until it errors or is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting health/metrics server")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
