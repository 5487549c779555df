package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
)

type reportRepo struct {
	db *sql.DB
}

// NextReportID increments the monthly counter and returns an id of the
// form <prefix>-MMM-YY-NNN, e.g. BN-FEB-26-001.
func (r *reportRepo) NextReportID(ctx context.Context, prefix string, now time.Time) (string, error) {
	monthKey := now.Format("2006-01")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin report counter tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO report_counters (month_key, count) VALUES (?, 0)
		ON CONFLICT(month_key) DO NOTHING
	`, monthKey); err != nil {
		return "", fmt.Errorf("ensure report counter: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `
		UPDATE report_counters SET count = count + 1 WHERE month_key = ?
		RETURNING count
	`, monthKey).Scan(&count); err != nil {
		return "", fmt.Errorf("increment report counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit report counter: %w", err)
	}

	month := strings.ToUpper(now.Format("Jan"))
	year := now.Format("06")
	return fmt.Sprintf("%s-%s-%s-%03d", prefix, month, year, count), nil
}

// Save records a rendered report.
func (r *reportRepo) Save(ctx context.Context, rep *models.StoredReport) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (report_id, site_id, date, file_path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rep.ReportID, rep.SiteID, rep.Date, rep.FilePath, rep.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListByDate returns reports generated for a site on a given day.
func (r *reportRepo) ListByDate(ctx context.Context, siteID, date string) ([]models.StoredReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT report_id, site_id, date, file_path, created_at
		FROM reports WHERE site_id = ? AND date = ?
		ORDER BY created_at ASC
	`, siteID, date)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []models.StoredReport
	for rows.Next() {
		var rep models.StoredReport
		if err := rows.Scan(&rep.ReportID, &rep.SiteID, &rep.Date, &rep.FilePath, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}
