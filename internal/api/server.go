// Package api provides the operational HTTP surface: health probes,
// report triggering, and alert condition inspection.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/burjnawas/sitecoord/internal/alerting"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/models"
	"github.com/burjnawas/sitecoord/internal/report"
)

// Config contains HTTP server configuration.
type Config struct {
	Address      string
	SiteID       string
	Location     *time.Location
	QueryTimeout time.Duration
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8081"
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// ReportService triggers and lists compiled reports.
type ReportService interface {
	GenerateAndPublish(ctx context.Context, siteID string, period report.Period, chatID string) (*models.ReportRecord, error)
}

// Server is the operational HTTP server.
type Server struct {
	config     Config
	store      *logstore.Store
	reports    ReportService
	engine     *alerting.Engine
	httpServer *http.Server
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(config Config, store *logstore.Store, reports ReportService, engine *alerting.Engine) *Server {
	config.SetDefaults()
	s := &Server{
		config:  config,
		store:   store,
		reports: reports,
		engine:  engine,
	}
	s.httpServer = &http.Server{
		Addr:         config.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	health := newHealthHandler()
	health.registerChecker(newStoreChecker(s.store))
	r.Get("/healthz", health.health)
	r.Get("/livez", health.live)
	r.Get("/readyz", health.ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", s.triggerReport)
		r.Get("/reports", s.listReports)
		r.Get("/alerts/conditions", s.alertConditions)
	})
	return r
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.config.Address)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
