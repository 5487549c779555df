// Package render produces the rendered report artifact. The layout here
// is a Markdown document; PDF layout belongs to an external rendering
// collaborator behind the same interface.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/burjnawas/sitecoord/internal/models"
)

const reportTemplate = `# Daily Site Report {{.ReportID}}

**Site:** {{.SiteID}}
**Period:** {{.PeriodStart.Format "2006-01-02 15:04"}} - {{.PeriodEnd.Format "2006-01-02 15:04"}}
**Generated:** {{.GeneratedAt.Format "2006-01-02 15:04:05"}}

## Weather
{{- if .Weather}}
- Wind: {{printf "%.1f" .Weather.WindSpeedKmh}} km/h
- Rain probability: {{printf "%.0f" .Weather.RainProbabilityPct}}%
- Temperature: {{printf "%.1f" .Weather.TempC}} °C
{{- if .Weather.Description}}
- Conditions: {{.Weather.Description}}
{{- end}}
{{- else}}
_Weather data unavailable._
{{- end}}

## Work in Progress
{{- if .ProjectStatus}}
{{- range .ProjectStatus}}
- #{{.ID}} {{.Subject}}{{if .DueDate}} (due {{.DueDate}}){{end}}
{{- end}}
{{- else}}
_No in-progress work packages._
{{- end}}

## Site Insights
{{.AIInsights}}

{{- if .PhotoInsights}}

## Photos
{{- range .PhotoInsights}}
- {{.Entry.Timestamp.Format "15:04"}} {{.Entry.PayloadRef}}{{if .Entry.Caption}} - {{.Entry.Caption}}{{end}}
  {{.Analysis}}
{{- end}}
{{- end}}

## Log Entries ({{len .Logs}})
{{- range .Logs}}
- {{.Timestamp.Format "15:04"}} {{.AuthorName}} [{{.Kind}}]: {{if .IsPhoto}}{{.PayloadRef}}{{if .Caption}} - {{.Caption}}{{end}}{{else}}{{.PayloadRef}}{{end}}
{{- else}}
_No entries recorded for this period._
{{- end}}
`

// MarkdownRenderer writes reports as Markdown files under a directory.
type MarkdownRenderer struct {
	dir  string
	tmpl *template.Template
}

// NewMarkdownRenderer creates a renderer writing into dir.
func NewMarkdownRenderer(dir string) (*MarkdownRenderer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &MarkdownRenderer{dir: dir, tmpl: tmpl}, nil
}

// Render writes the record and returns the file path.
func (r *MarkdownRenderer) Render(record *models.ReportRecord) (string, error) {
	name := fmt.Sprintf("Site_Report_%s_%s.md", record.PeriodStart.Format("2006-01-02"), record.ReportID)
	path := filepath.Join(r.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := r.tmpl.Execute(f, record); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return path, nil
}
