package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the Prometheus registry on its own listener, kept off
// the operational API port so scrapes never contend with report
// triggers.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics server bound to addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start serves until the listener closes.
func (s *Server) Start() error {
	log.Printf("metrics: listening on %s", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight scrapes and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("metrics: shutting down")
	return s.srv.Shutdown(ctx)
}
