// Package logstore provides the append-only SQLite store for site log
// entries, report bookkeeping, and bot settings.
package logstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// ErrValidation is returned when a record is rejected at the boundary.
var ErrValidation = errors.New("validation error")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store implements persistent storage using SQLite.
type Store struct {
	path string
	db   *sql.DB

	logs     *logRepo
	settings *settingsRepo
	reports  *reportRepo
}

// NewStore creates a store backed by the SQLite database at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Open initializes the database connection.
func (s *Store) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer; a pool of one serializes all writes and
	// gives us the per-site single-writer discipline for free.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db
	s.logs = &logRepo{db: db}
	s.settings = &settingsRepo{db: db}
	s.reports = &reportRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *Store) Migrate() error {
	return runMigrations(s.db)
}

// Logs returns the log entry repository.
func (s *Store) Logs() LogRepository {
	return s.logs
}

// Settings returns the settings repository.
func (s *Store) Settings() SettingsRepository {
	return s.settings
}

// Reports returns the report repository.
func (s *Store) Reports() ReportRepository {
	return s.reports
}
