package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
	"github.com/burjnawas/sitecoord/internal/report"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type triggerReportRequest struct {
	Date   string `json:"date"`    // YYYY-MM-DD, defaults to today
	ChatID string `json:"chat_id"` // defaults to the configured safety channel
}

type triggerReportResponse struct {
	ReportID  string `json:"report_id"`
	SiteID    string `json:"site_id"`
	LogCount  int    `json:"log_count"`
	Degraded  bool   `json:"degraded"`
	Generated string `json:"generated_at"`
}

// triggerReport compiles and publishes a report for one day on demand.
func (s *Server) triggerReport(w http.ResponseWriter, r *http.Request) {
	var req triggerReportRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	day := time.Now().In(s.config.Location)
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, s.config.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}
	period := report.DayPeriod(day, s.config.Location)

	// Compilation talks to slow external services, so it is not bound to
	// the request context.
	record, err := s.reports.GenerateAndPublish(context.WithoutCancel(r.Context()), s.config.SiteID, period, req.ChatID)
	if err != nil {
		if errors.Is(err, report.ErrCompileInFlight) {
			writeError(w, http.StatusConflict, "a report for this site is already being compiled")
			return
		}
		log.Printf("report trigger failed: %v", err)
		writeError(w, http.StatusInternalServerError, "report compilation failed")
		return
	}

	writeJSON(w, http.StatusCreated, triggerReportResponse{
		ReportID:  record.ReportID,
		SiteID:    record.SiteID,
		LogCount:  len(record.Logs),
		Degraded:  record.AIInsights == models.AIInsightsUnavailable,
		Generated: record.GeneratedAt.Format(time.RFC3339),
	})
}

// listReports returns stored report metadata for one day.
func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().In(s.config.Location).Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.QueryTimeout)
	defer cancel()

	stored, err := s.store.Reports().ListByDate(ctx, s.config.SiteID, date)
	if err != nil {
		log.Printf("failed to list reports: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

type alertConditionsResponse struct {
	SiteID            string   `json:"site_id"`
	ActiveConditions  []string `json:"active_conditions"`
	SamplesEvaluated  int64    `json:"samples_evaluated"`
	AlertsEmitted     int64    `json:"alerts_emitted"`
	AlertsSuppressed  int64    `json:"alerts_suppressed"`
	ConditionsCleared int64    `json:"conditions_cleared"`
}

// alertConditions exposes the current weather condition state for the site.
func (s *Server) alertConditions(w http.ResponseWriter, r *http.Request) {
	resp := alertConditionsResponse{
		SiteID:           s.config.SiteID,
		ActiveConditions: []string{},
	}
	for _, rule := range s.engine.Rules() {
		if state := s.engine.State(s.config.SiteID, rule.Kind); state != nil && state.Active() {
			resp.ActiveConditions = append(resp.ActiveConditions, string(rule.Kind))
		}
	}
	stats := s.engine.Stats()
	resp.SamplesEvaluated = stats.SamplesEvaluated
	resp.AlertsEmitted = stats.AlertsEmitted
	resp.AlertsSuppressed = stats.AlertsSuppressed
	resp.ConditionsCleared = stats.ConditionsCleared
	writeJSON(w, http.StatusOK, resp)
}
