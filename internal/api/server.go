// Package api provides the optional HTTP surface of the watch mode: health,
// Prometheus metrics and the most recent scan report.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/memecoin-scanner/internal/logging"
	"github.com/memecoin-scanner/internal/service"
)

// ReportSource returns the latest completed scan, or nil before the first one
type ReportSource interface {
	Latest() *service.ScanReport
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	reports    ReportSource
	metrics    http.Handler
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// RequestsPerSecond limits each client; zero disables limiting
	RequestsPerSecond int
}

// DefaultServerConfig returns the configuration used by the watch command
func DefaultServerConfig(addr string) *ServerConfig {
	return &ServerConfig{
		Addr:              addr,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		RequestsPerSecond: 10,
	}
}

// NewServer creates a new API server instance. metricsHandler may be nil.
func NewServer(config *ServerConfig, reports ReportSource, metricsHandler http.Handler) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		reports: reports,
		metrics: metricsHandler,
		config:  config,
	}

	s.setupRouter()

	return s
}

func (s *Server) setupRouter() {
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	if s.config.RequestsPerSecond > 0 {
		s.router.Use(RateLimitMiddleware(NewRateLimiter(s.config.RequestsPerSecond)))
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	// registered on the root router so a wrong method yields 405, not 404
	s.router.HandleFunc("/api/scans/latest", s.handleLatestScan).Methods(http.MethodGet)
	s.router.HandleFunc("/api/scans/latest/records", s.handleLatestRecords).Methods(http.MethodGet)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "healthy",
		"service": "memecoin-scanner",
	}
	if latest := s.reports.Latest(); latest != nil {
		body["last_scan_id"] = latest.ScanID
		body["last_scan_at"] = latest.FinishedAt
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleLatestScan(w http.ResponseWriter, r *http.Request) {
	latest := s.reports.Latest()
	if latest == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No scan has completed yet", nil)
		return
	}
	respondJSON(w, http.StatusOK, latest)
}

func (s *Server) handleLatestRecords(w http.ResponseWriter, r *http.Request) {
	latest := s.reports.Latest()
	if latest == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No scan has completed yet", nil)
		return
	}

	records, err := filterRecords(latest, r.URL.Query())
	if err != nil {
		respondCategorized(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scan_id": latest.ScanID,
		"count":   len(records),
		"records": records,
	})
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server")
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}
