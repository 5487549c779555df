package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
)

type fakeLogs struct {
	entries []models.LogEntry
	err     error
}

func (f *fakeLogs) Record(ctx context.Context, entry *models.LogEntry) error { return nil }
func (f *fakeLogs) FetchSince(ctx context.Context, siteID string, since time.Time) ([]models.LogEntry, error) {
	return f.entries, f.err
}
func (f *fakeLogs) FetchRange(ctx context.Context, siteID string, start, end time.Time) ([]models.LogEntry, error) {
	return f.entries, f.err
}
func (f *fakeLogs) CountRange(ctx context.Context, siteID string, start, end time.Time) (int, error) {
	return len(f.entries), f.err
}

type fakeReports struct {
	mu     sync.Mutex
	nextID int
	saved  []models.StoredReport
}

func (f *fakeReports) NextReportID(ctx context.Context, prefix string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s-%s-%s-%03d", prefix, strings.ToUpper(now.Format("Jan")), now.Format("06"), f.nextID), nil
}
func (f *fakeReports) Save(ctx context.Context, rep *models.StoredReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *rep)
	return nil
}
func (f *fakeReports) ListByDate(ctx context.Context, siteID, date string) ([]models.StoredReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}

type fakeProjects struct {
	packages []models.WorkPackage
	err      error
}

func (f *fakeProjects) InProgressWorkPackages(ctx context.Context) ([]models.WorkPackage, error) {
	return f.packages, f.err
}

type fakeWeather struct {
	sample models.WeatherSample
	err    error
}

func (f *fakeWeather) Sample(ctx context.Context) (models.WeatherSample, error) {
	return f.sample, f.err
}

type fakeAI struct {
	summary  string
	analysis string
	err      error
	block    chan struct{} // when set, Summarize blocks until closed
	started  sync.Once
	entered  chan struct{} // closed when Summarize is first entered

	mu         sync.Mutex
	imageCalls int
}

func (f *fakeAI) Summarize(ctx context.Context, text string) (string, error) {
	if f.entered != nil {
		f.started.Do(func() { close(f.entered) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.summary, f.err
}
func (f *fakeAI) AnalyzeImage(ctx context.Context, image []byte, caption string) (string, error) {
	f.mu.Lock()
	f.imageCalls++
	f.mu.Unlock()
	return f.analysis, f.err
}
func (f *fakeAI) SafetyTip(ctx context.Context) (string, error) { return "", f.err }

type fakePhotos struct {
	data map[string][]byte
}

func (f *fakePhotos) Load(ref string) ([]byte, error) {
	if data, ok := f.data[ref]; ok {
		return data, nil
	}
	return nil, errors.New("no such photo")
}

func dayEntries() []models.LogEntry {
	ts := time.Date(2026, 8, 12, 9, 15, 0, 0, time.UTC)
	return []models.LogEntry{
		{ID: "1", SiteID: "site-1", Timestamp: ts, AuthorName: "foreman", Kind: models.EntryKindText, PayloadRef: "poured slab, level 3"},
		{ID: "2", SiteID: "site-1", Timestamp: ts.Add(time.Hour), AuthorName: "engineer", Kind: models.EntryKindPhoto, PayloadRef: "/photos/a.jpg", Caption: "rebar check"},
	}
}

func testPeriod() Period {
	return DayPeriod(time.Date(2026, 8, 12, 12, 0, 0, 0, time.UTC), time.UTC)
}

func newTestCompiler(aiClient *fakeAI, weather *fakeWeather, projects *fakeProjects) *Compiler {
	return NewCompiler(
		&fakeLogs{entries: dayEntries()},
		&fakeReports{},
		projects,
		weather,
		aiClient,
		&fakePhotos{data: map[string][]byte{"/photos/a.jpg": []byte("jpeg")}},
		Options{AITimeout: time.Second},
	)
}

func TestCompiler_FullCompile(t *testing.T) {
	aiClient := &fakeAI{summary: "good progress on level 3", analysis: "rebar spacing looks correct"}
	weather := &fakeWeather{sample: models.WeatherSample{WindSpeedKmh: 12, TempC: 41}}
	projects := &fakeProjects{packages: []models.WorkPackage{{ID: 7, Subject: "Concrete works", Status: "In progress"}}}
	c := newTestCompiler(aiClient, weather, projects)

	record, err := c.Compile(context.Background(), "site-1", testPeriod())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if record.ReportID != "BN-AUG-26-001" {
		t.Errorf("unexpected report id %q", record.ReportID)
	}
	if len(record.Logs) != 2 {
		t.Errorf("expected 2 log entries, got %d", len(record.Logs))
	}
	if len(record.ProjectStatus) != 1 || record.ProjectStatus[0].Subject != "Concrete works" {
		t.Errorf("unexpected project status: %+v", record.ProjectStatus)
	}
	if record.Weather == nil || record.Weather.TempC != 41 {
		t.Errorf("unexpected weather: %+v", record.Weather)
	}
	if record.AIInsights != "good progress on level 3" {
		t.Errorf("unexpected insights: %q", record.AIInsights)
	}
	if len(record.PhotoInsights) != 1 || record.PhotoInsights[0].Analysis != "rebar spacing looks correct" {
		t.Errorf("unexpected photo insights: %+v", record.PhotoInsights)
	}
}

func TestCompiler_AIFailureDegrades(t *testing.T) {
	aiClient := &fakeAI{err: errors.New("service unavailable")}
	c := newTestCompiler(aiClient, &fakeWeather{}, &fakeProjects{})

	record, err := c.Compile(context.Background(), "site-1", testPeriod())
	if err != nil {
		t.Fatalf("expected degraded compile to succeed, got %v", err)
	}
	if record.AIInsights != models.AIInsightsUnavailable {
		t.Errorf("expected unavailable insights, got %q", record.AIInsights)
	}
	if len(record.PhotoInsights) != 1 || record.PhotoInsights[0].Analysis != models.AIInsightsUnavailable {
		t.Errorf("expected unavailable photo analysis, got %+v", record.PhotoInsights)
	}
	if len(record.Logs) != 2 {
		t.Errorf("expected logs to survive degradation, got %d", len(record.Logs))
	}
}

func TestCompiler_WeatherFailureIsNotFatal(t *testing.T) {
	c := newTestCompiler(&fakeAI{summary: "s"}, &fakeWeather{err: errors.New("api down")}, &fakeProjects{})

	record, err := c.Compile(context.Background(), "site-1", testPeriod())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if record.Weather != nil {
		t.Errorf("expected nil weather, got %+v", record.Weather)
	}
}

func TestCompiler_LogFetchFailureIsFatal(t *testing.T) {
	c := NewCompiler(
		&fakeLogs{err: errors.New("db locked")},
		&fakeReports{},
		&fakeProjects{},
		&fakeWeather{},
		&fakeAI{},
		&fakePhotos{},
		Options{},
	)

	if _, err := c.Compile(context.Background(), "site-1", testPeriod()); err == nil {
		t.Fatal("expected log fetch failure to abort compilation")
	}
}

func TestCompiler_ProjectFailureIsFatal(t *testing.T) {
	c := newTestCompiler(&fakeAI{}, &fakeWeather{}, &fakeProjects{err: errors.New("401")})

	if _, err := c.Compile(context.Background(), "site-1", testPeriod()); err == nil {
		t.Fatal("expected project fetch failure to abort compilation")
	}
}

func TestCompiler_ConcurrentCompileRejected(t *testing.T) {
	block := make(chan struct{})
	aiClient := &fakeAI{summary: "s", block: block, entered: make(chan struct{})}
	c := newTestCompiler(aiClient, &fakeWeather{}, &fakeProjects{})

	results := make(chan error, 1)
	go func() {
		_, err := c.Compile(context.Background(), "site-1", testPeriod())
		results <- err
	}()

	// Wait until the first compile is inside its AI stage, holding the
	// site slot.
	select {
	case <-aiClient.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first compile never reached the AI stage")
	}

	if _, err := c.Compile(context.Background(), "site-1", testPeriod()); !errors.Is(err, ErrCompileInFlight) {
		t.Fatalf("expected ErrCompileInFlight for concurrent request, got %v", err)
	}

	// A different site is not blocked.
	close(block)
	if _, err := c.Compile(context.Background(), "site-2", testPeriod()); err != nil {
		t.Errorf("expected site-2 compile to proceed, got %v", err)
	}

	if err := <-results; err != nil {
		t.Errorf("first compile failed: %v", err)
	}

	// The slot is free again after completion.
	if _, err := c.Compile(context.Background(), "site-1", testPeriod()); err != nil {
		t.Errorf("expected compile to succeed after release, got %v", err)
	}
}

func TestAggregateText(t *testing.T) {
	got := aggregateText(dayEntries())
	if !strings.Contains(got, "09:15 foreman: poured slab, level 3") {
		t.Errorf("missing text line in %q", got)
	}
	if !strings.Contains(got, "[photo] rebar check") {
		t.Errorf("missing photo caption line in %q", got)
	}

	if got := aggregateText(nil); got != "No logs recorded today." {
		t.Errorf("unexpected empty aggregate: %q", got)
	}

	// Photos without captions contribute nothing.
	uncaptioned := []models.LogEntry{{Kind: models.EntryKindPhoto, PayloadRef: "/p.jpg"}}
	if got := aggregateText(uncaptioned); got != "No logs recorded today." {
		t.Errorf("unexpected aggregate for uncaptioned photo: %q", got)
	}
}
