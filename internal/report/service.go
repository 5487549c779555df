package report

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/burjnawas/sitecoord/internal/dispatch"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/models"
)

// Renderer turns a ReportRecord into a file on disk and returns its path.
type Renderer interface {
	Render(record *models.ReportRecord) (string, error)
}

// Service orchestrates compile, render, persist, and delivery.
type Service struct {
	compiler   *Compiler
	renderer   Renderer
	reports    logstore.ReportRepository
	settings   logstore.SettingsRepository
	dispatcher *dispatch.Dispatcher
	formatter  dispatch.Formatter
}

// NewService creates a report service.
func NewService(compiler *Compiler, renderer Renderer, reports logstore.ReportRepository, settings logstore.SettingsRepository, d *dispatch.Dispatcher, f dispatch.Formatter) *Service {
	return &Service{
		compiler:   compiler,
		renderer:   renderer,
		reports:    reports,
		settings:   settings,
		dispatcher: d,
		formatter:  f,
	}
}

// GenerateAndPublish compiles a report, renders it, records it, and
// queues delivery. chatID selects the destination; when empty the
// configured safety channel receives the report.
func (s *Service) GenerateAndPublish(ctx context.Context, siteID string, period Period, chatID string) (*models.ReportRecord, error) {
	record, err := s.compiler.Compile(ctx, siteID, period)
	if err != nil {
		return nil, err
	}

	path, err := s.renderer.Render(record)
	if err != nil {
		return nil, fmt.Errorf("render report %s: %w", record.ReportID, err)
	}

	date := record.PeriodStart.Format("2006-01-02")
	if err := s.reports.Save(ctx, &models.StoredReport{
		ReportID:  record.ReportID,
		SiteID:    siteID,
		Date:      date,
		FilePath:  path,
		CreatedAt: record.GeneratedAt,
	}); err != nil {
		return nil, fmt.Errorf("record report %s: %w", record.ReportID, err)
	}

	if chatID == "" {
		chatID, err = s.settings.SafetyChannel(ctx)
		if err != nil {
			log.Printf("report: %s rendered but no destination configured, kept at %s", record.ReportID, path)
			return record, nil
		}
	}

	s.dispatcher.Dispatch(chatID, dispatch.Message{
		FilePath: path,
		Text:     s.formatter.FormatReportCaption(record.ReportID, date),
	}, models.SeverityInfo)

	return record, nil
}

// FilePhotoLoader loads photo payloads from the local data directory.
type FilePhotoLoader struct{}

// Load reads the photo file at ref.
func (FilePhotoLoader) Load(ref string) ([]byte, error) {
	return os.ReadFile(ref)
}
