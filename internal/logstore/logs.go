package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/burjnawas/sitecoord/internal/models"
)

type logRepo struct {
	db *sql.DB
}

// Record appends a log entry. The entry is validated at the boundary and
// assigned an id if it does not carry one. There is no update or delete
// path; the table is append-only.
func (r *logRepo) Record(ctx context.Context, entry *models.LogEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO log_entries (id, site_id, author_id, author_name, kind, payload_ref, caption, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.SiteID, entry.AuthorID, entry.AuthorName,
		string(entry.Kind), entry.PayloadRef, entry.Caption, entry.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// FetchSince returns every entry for the site with timestamp >= since,
// ordered by timestamp ascending. The query is re-runnable; callers that
// need to restart iteration simply call it again.
func (r *logRepo) FetchSince(ctx context.Context, siteID string, since time.Time) ([]models.LogEntry, error) {
	query := `
		SELECT id, site_id, author_id, author_name, kind, payload_ref, caption, timestamp
		FROM log_entries
		WHERE site_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`
	return r.queryEntries(ctx, query, siteID, since.UTC())
}

// FetchRange returns entries with timestamp in [start, end), ordered by
// timestamp ascending. Report compilation aggregates over half-open
// periods so adjacent reports never share an entry.
func (r *logRepo) FetchRange(ctx context.Context, siteID string, start, end time.Time) ([]models.LogEntry, error) {
	query := `
		SELECT id, site_id, author_id, author_name, kind, payload_ref, caption, timestamp
		FROM log_entries
		WHERE site_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`
	return r.queryEntries(ctx, query, siteID, start.UTC(), end.UTC())
}

// CountRange returns the number of entries with timestamp in [start, end).
func (r *logRepo) CountRange(ctx context.Context, siteID string, start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM log_entries WHERE site_id = ? AND timestamp >= ? AND timestamp < ?",
		siteID, start.UTC(), end.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count log entries: %w", err)
	}
	return count, nil
}

func (r *logRepo) queryEntries(ctx context.Context, query string, args ...any) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		var kind string
		var authorName, caption sql.NullString
		if err := rows.Scan(&e.ID, &e.SiteID, &e.AuthorID, &authorName, &kind, &e.PayloadRef, &caption, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		e.Kind = models.EntryKind(kind)
		e.AuthorName = authorName.String
		e.Caption = caption.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log entries: %w", err)
	}
	return entries, nil
}
