package logstore

import (
	"context"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
)

// LogRepository is the append-only log entry store.
type LogRepository interface {
	Record(ctx context.Context, entry *models.LogEntry) error
	FetchSince(ctx context.Context, siteID string, since time.Time) ([]models.LogEntry, error)
	FetchRange(ctx context.Context, siteID string, start, end time.Time) ([]models.LogEntry, error)
	CountRange(ctx context.Context, siteID string, start, end time.Time) (int, error)
}

// SettingsRepository stores dispatch destinations and other key/value
// bot settings.
type SettingsRepository interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	SetAlertDestination(ctx context.Context, siteID, chatID string) error
	AlertDestination(ctx context.Context, siteID string) (string, error)
	SetSafetyChannel(ctx context.Context, chatID string) error
	SafetyChannel(ctx context.Context) (string, error)
}

// ReportRepository allocates report ids and records rendered reports.
type ReportRepository interface {
	NextReportID(ctx context.Context, prefix string, now time.Time) (string, error)
	Save(ctx context.Context, rep *models.StoredReport) error
	ListByDate(ctx context.Context, siteID, date string) ([]models.StoredReport, error)
}
