package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/burjnawas/sitecoord/internal/alerting"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/models"
	"github.com/burjnawas/sitecoord/internal/report"
)

type fakeReportService struct {
	record *models.ReportRecord
	err    error

	lastSiteID string
	lastChatID string
	lastPeriod report.Period
}

func (f *fakeReportService) GenerateAndPublish(ctx context.Context, siteID string, period report.Period, chatID string) (*models.ReportRecord, error) {
	f.lastSiteID = siteID
	f.lastPeriod = period
	f.lastChatID = chatID
	return f.record, f.err
}

func newTestServer(t *testing.T, reports ReportService) *Server {
	t.Helper()
	store := logstore.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	engine := alerting.NewEngine(alerting.DefaultRules())
	return NewServer(Config{SiteID: "site-1", Location: time.UTC}, store, reports, engine)
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeReportService{})
	router := srv.setupRouter()

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode readyz: %v", err)
	}
	if resp.Status != "ready" || resp.Checks["logstore"] != "ok" {
		t.Errorf("unexpected readiness: %+v", resp)
	}
}

func TestServer_TriggerReport(t *testing.T) {
	reports := &fakeReportService{record: &models.ReportRecord{
		ReportID:    "BN-AUG-26-001",
		SiteID:      "site-1",
		AIInsights:  "fine",
		GeneratedAt: time.Date(2026, 8, 12, 18, 0, 0, 0, time.UTC),
	}}
	srv := newTestServer(t, reports)
	router := srv.setupRouter()

	body := strings.NewReader(`{"date":"2026-08-12","chat_id":"-100500"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp triggerReportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ReportID != "BN-AUG-26-001" || resp.Degraded {
		t.Errorf("unexpected response: %+v", resp)
	}

	if reports.lastSiteID != "site-1" || reports.lastChatID != "-100500" {
		t.Errorf("unexpected service call: site=%q chat=%q", reports.lastSiteID, reports.lastChatID)
	}
	wantStart := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
	if !reports.lastPeriod.Start.Equal(wantStart) {
		t.Errorf("unexpected period start %v", reports.lastPeriod.Start)
	}
}

func TestServer_TriggerReportConflict(t *testing.T) {
	srv := newTestServer(t, &fakeReportService{err: report.ErrCompileInFlight})
	router := srv.setupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for in-flight compile, got %d", rec.Code)
	}
}

func TestServer_TriggerReportBadDate(t *testing.T) {
	srv := newTestServer(t, &fakeReportService{})
	router := srv.setupRouter()

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"date":"12/08/2026"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", body))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestServer_ListReports(t *testing.T) {
	srv := newTestServer(t, &fakeReportService{})
	if err := srv.store.Reports().Save(context.Background(), &models.StoredReport{
		ReportID: "BN-AUG-26-001",
		SiteID:   "site-1",
		Date:     "2026-08-12",
		FilePath: "/data/reports/r.md",
	}); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	router := srv.setupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports?date=2026-08-12", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stored []models.StoredReport
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(stored) != 1 || stored[0].ReportID != "BN-AUG-26-001" {
		t.Errorf("unexpected stored reports: %+v", stored)
	}
}

func TestServer_AlertConditions(t *testing.T) {
	srv := newTestServer(t, &fakeReportService{})
	srv.engine.Evaluate("site-1", models.WeatherSample{WindSpeedKmh: 45}, time.Now())
	router := srv.setupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/conditions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp alertConditionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.ActiveConditions) != 1 || resp.ActiveConditions[0] != string(models.AlertHighWind) {
		t.Errorf("unexpected active conditions: %+v", resp.ActiveConditions)
	}
	if resp.AlertsEmitted != 1 || resp.SamplesEvaluated != 1 {
		t.Errorf("unexpected stats: %+v", resp)
	}
}
