package models

import "time"

// WorkPackage is a unit of project work tracked by the project-management
// collaborator.
type WorkPackage struct {
	ID        int    `json:"id"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	StartDate string `json:"start_date,omitempty"` // YYYY-MM-DD
	DueDate   string `json:"due_date,omitempty"`   // YYYY-MM-DD
}

// PhotoInsight pairs a photo entry with its AI analysis.
type PhotoInsight struct {
	Entry    LogEntry `json:"entry"`
	Analysis string   `json:"analysis"`
}

// AIInsightsUnavailable is the sentinel value stored in a ReportRecord when
// the AI collaborator could not be reached during compilation.
const AIInsightsUnavailable = "unavailable"

// ReportRecord is the assembled output of one report compilation.
// It is immutable after creation.
type ReportRecord struct {
	ReportID    string    `json:"report_id"` // e.g. BN-FEB-26-001
	SiteID      string    `json:"site_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	// Logs holds every entry with PeriodStart <= Timestamp < PeriodEnd.
	Logs []LogEntry `json:"logs"`

	// ProjectStatus is the in-progress work package snapshot.
	ProjectStatus []WorkPackage `json:"project_status"`

	// Weather is the latest sample at compile time, nil if unavailable.
	Weather *WeatherSample `json:"weather,omitempty"`

	// AIInsights is the aggregate log summary, or AIInsightsUnavailable
	// when the AI collaborator failed.
	AIInsights string `json:"ai_insights"`

	// PhotoInsights holds per-photo analyses. Individual failed analyses
	// carry AIInsightsUnavailable in their Analysis field.
	PhotoInsights []PhotoInsight `json:"photo_insights,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// StoredReport records a rendered report on disk.
type StoredReport struct {
	ReportID  string    `json:"report_id"`
	SiteID    string    `json:"site_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}
