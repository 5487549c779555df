// Package report compiles the periodic site report: log aggregation,
// project snapshot, weather, and AI insights assembled into an immutable
// ReportRecord.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/burjnawas/sitecoord/internal/ai"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/metrics"
	"github.com/burjnawas/sitecoord/internal/models"
)

// ErrCompileInFlight is returned when a compilation is requested for a
// site that already has one running. Duplicate reports and duplicate AI
// billing are avoided by rejecting, not queueing.
var ErrCompileInFlight = errors.New("report compilation already in flight for site")

// Period is the half-open time window [Start, End) a report aggregates.
type Period struct {
	Start time.Time
	End   time.Time
}

// DayPeriod returns the period covering the local day containing t.
func DayPeriod(t time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Period{Start: start, End: start.AddDate(0, 0, 1)}
}

// ProjectClient is the project-management collaborator.
type ProjectClient interface {
	InProgressWorkPackages(ctx context.Context) ([]models.WorkPackage, error)
}

// WeatherSource supplies the latest weather sample.
type WeatherSource interface {
	Sample(ctx context.Context) (models.WeatherSample, error)
}

// PhotoLoader resolves a photo entry's payload reference to image bytes.
type PhotoLoader interface {
	Load(ref string) ([]byte, error)
}

// Options configures a Compiler.
type Options struct {
	// IDPrefix prefixes report ids (default "BN").
	IDPrefix string
	// AITimeout bounds each AI sub-request (default 30s).
	AITimeout time.Duration
	// AIConcurrency bounds parallel AI sub-requests (default 4).
	AIConcurrency int
}

// Compiler runs the staged compile pipeline.
type Compiler struct {
	logs     logstore.LogRepository
	reports  logstore.ReportRepository
	projects ProjectClient
	weather  WeatherSource
	ai       ai.Client
	photos   PhotoLoader
	opts     Options

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCompiler creates a compiler.
func NewCompiler(logs logstore.LogRepository, reports logstore.ReportRepository, projects ProjectClient, weather WeatherSource, aiClient ai.Client, photos PhotoLoader, opts Options) *Compiler {
	if opts.IDPrefix == "" {
		opts.IDPrefix = "BN"
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = 30 * time.Second
	}
	if opts.AIConcurrency <= 0 {
		opts.AIConcurrency = 4
	}
	return &Compiler{
		logs:     logs,
		reports:  reports,
		projects: projects,
		weather:  weather,
		ai:       aiClient,
		photos:   photos,
		opts:     opts,
	}
}

// Compile runs the pipeline for one site and period. At most one
// compilation per site runs at a time; concurrent requests are rejected
// with ErrCompileInFlight.
//
// Log Store and project-status failures are fatal to the compilation.
// AI failures degrade: the record is still produced with its insights
// marked unavailable. A weather fetch failure leaves Weather nil.
func (c *Compiler) Compile(ctx context.Context, siteID string, period Period) (*models.ReportRecord, error) {
	if err := c.acquire(siteID); err != nil {
		metrics.ReportCompilesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	defer c.release(siteID)

	start := time.Now()
	record, outcome, err := c.compile(ctx, siteID, period)
	metrics.ReportCompileDuration.Observe(time.Since(start).Seconds())
	metrics.ReportCompilesTotal.WithLabelValues(outcome).Inc()
	return record, err
}

func (c *Compiler) acquire(siteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight == nil {
		c.inFlight = make(map[string]struct{})
	}
	if _, busy := c.inFlight[siteID]; busy {
		return fmt.Errorf("%w: %s", ErrCompileInFlight, siteID)
	}
	c.inFlight[siteID] = struct{}{}
	return nil
}

func (c *Compiler) release(siteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, siteID)
}

func (c *Compiler) compile(ctx context.Context, siteID string, period Period) (*models.ReportRecord, string, error) {
	// Stage 1: log entries for the period. Load-bearing.
	entries, err := c.logs.FetchRange(ctx, siteID, period.Start, period.End)
	if err != nil {
		return nil, "failed", fmt.Errorf("fetch log entries: %w", err)
	}

	// Stage 2: in-progress work packages. Load-bearing.
	packages, err := c.projects.InProgressWorkPackages(ctx)
	if err != nil {
		return nil, "failed", fmt.Errorf("fetch project status: %w", err)
	}

	// Stage 3: latest weather. Enrichment only.
	var sample *models.WeatherSample
	if s, err := c.weather.Sample(ctx); err != nil {
		log.Printf("report: weather unavailable for %s report: %v", siteID, err)
	} else {
		sample = &s
	}

	// Stage 4: AI insights. Summarization and per-photo analyses have no
	// mutual ordering dependency, so they fan out concurrently and all
	// resolve (or time out) before assembly.
	summary, photoInsights := c.gatherInsights(ctx, entries)

	// Stage 5: assemble.
	reportID, err := c.reports.NextReportID(ctx, c.opts.IDPrefix, period.Start)
	if err != nil {
		return nil, "failed", fmt.Errorf("allocate report id: %w", err)
	}

	record := &models.ReportRecord{
		ReportID:      reportID,
		SiteID:        siteID,
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
		Logs:          entries,
		ProjectStatus: packages,
		Weather:       sample,
		AIInsights:    summary,
		PhotoInsights: photoInsights,
		GeneratedAt:   time.Now(),
	}

	outcome := "ok"
	if summary == models.AIInsightsUnavailable {
		outcome = "degraded"
	}
	return record, outcome, nil
}

// gatherInsights runs the AI fan-out: one summarization of aggregate
// text plus one analysis per photo entry.
func (c *Compiler) gatherInsights(ctx context.Context, entries []models.LogEntry) (string, []models.PhotoInsight) {
	var photos []models.LogEntry
	for _, e := range entries {
		if e.IsPhoto() {
			photos = append(photos, e)
		}
	}

	summary := models.AIInsightsUnavailable
	insights := make([]models.PhotoInsight, len(photos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.AIConcurrency)

	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, c.opts.AITimeout)
		defer cancel()
		s, err := c.ai.Summarize(callCtx, aggregateText(entries))
		if err != nil {
			log.Printf("report: log summary unavailable: %v", err)
			return nil
		}
		summary = s
		return nil
	})

	for i, photo := range photos {
		i, photo := i, photo
		g.Go(func() error {
			insights[i] = models.PhotoInsight{
				Entry:    photo,
				Analysis: models.AIInsightsUnavailable,
			}

			data, err := c.photos.Load(photo.PayloadRef)
			if err != nil {
				log.Printf("report: photo %s unreadable: %v", photo.ID, err)
				return nil
			}

			callCtx, cancel := context.WithTimeout(gctx, c.opts.AITimeout)
			defer cancel()
			analysis, err := c.ai.AnalyzeImage(callCtx, data, photo.Caption)
			if err != nil {
				log.Printf("report: photo %s analysis unavailable: %v", photo.ID, err)
				return nil
			}
			insights[i].Analysis = analysis
			return nil
		})
	}

	// Sub-tasks degrade internally and never return errors; Wait is the
	// fan-in barrier.
	g.Wait()

	return summary, insights
}

// aggregateText flattens entries into the text block handed to the
// summarizer.
func aggregateText(entries []models.LogEntry) string {
	if len(entries) == 0 {
		return "No logs recorded today."
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsPhoto() {
			if e.Caption != "" {
				fmt.Fprintf(&b, "%s %s: [photo] %s\n", e.Timestamp.Format("15:04"), e.AuthorName, e.Caption)
			}
			continue
		}
		fmt.Fprintf(&b, "%s %s: %s\n", e.Timestamp.Format("15:04"), e.AuthorName, e.PayloadRef)
	}
	if b.Len() == 0 {
		return "No logs recorded today."
	}
	return b.String()
}
