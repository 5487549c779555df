package logstore

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Site log entries, append-only for audit integrity.
			CREATE TABLE IF NOT EXISTS log_entries (
				id TEXT PRIMARY KEY,
				site_id TEXT NOT NULL,
				author_id TEXT NOT NULL,
				author_name TEXT,
				kind TEXT NOT NULL,
				payload_ref TEXT NOT NULL,
				caption TEXT,
				timestamp DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_log_entries_site_ts
				ON log_entries(site_id, timestamp);

			-- Key/value bot settings (alert destinations, safety channel).
			CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			-- Monthly sequence for report ids (BN-MMM-YY-NNN).
			CREATE TABLE IF NOT EXISTS report_counters (
				month_key TEXT PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0
			);

			-- Rendered reports.
			CREATE TABLE IF NOT EXISTS reports (
				report_id TEXT PRIMARY KEY,
				site_id TEXT NOT NULL,
				date TEXT NOT NULL,
				file_path TEXT NOT NULL,
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_reports_site_date
				ON reports(site_id, date);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations tracking table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
