package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/burjnawas/sitecoord/internal/logstore"
)

// checker verifies one dependency of the service.
type checker interface {
	name() string
	check(ctx context.Context) error
}

type healthHandler struct {
	mu       sync.RWMutex
	checkers []checker
}

func newHealthHandler() *healthHandler {
	return &healthHandler{}
}

func (h *healthHandler) registerChecker(c checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// health is the simple "is the process running" probe.
func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *healthHandler) live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "live"})
}

// ready checks all registered dependencies and returns 200 only when all
// of them are healthy.
func (h *healthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checkers := make([]checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	results := make(map[string]string)
	allHealthy := true
	for _, c := range checkers {
		if err := c.check(ctx); err != nil {
			results[c.name()] = err.Error()
			allHealthy = false
		} else {
			results[c.name()] = "ok"
		}
	}

	resp := healthResponse{Status: "ready", Checks: results}
	status := http.StatusOK
	if !allHealthy {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type storeChecker struct {
	store *logstore.Store
}

func newStoreChecker(store *logstore.Store) *storeChecker {
	return &storeChecker{store: store}
}

func (c *storeChecker) name() string {
	return "logstore"
}

func (c *storeChecker) check(ctx context.Context) error {
	if c.store == nil || c.store.DB() == nil {
		return fmt.Errorf("log store not initialized")
	}
	return c.store.DB().PingContext(ctx)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
