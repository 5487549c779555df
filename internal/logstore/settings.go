package logstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting keys. Alert destinations are stored per site; the safety channel
// is the broadcast target for daily jobs.
const (
	settingAlertDestination = "alert_destination"
	settingSafetyChannel    = "safety_channel"
)

type settingsRepo struct {
	db *sql.DB
}

// Set upserts a setting value.
func (r *settingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Get returns a setting value, or ErrNotFound.
func (r *settingsRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetAlertDestination sets the chat that receives alerts for a site.
func (r *settingsRepo) SetAlertDestination(ctx context.Context, siteID, chatID string) error {
	return r.Set(ctx, settingAlertDestination+":"+siteID, chatID)
}

// AlertDestination returns the configured alert chat for a site.
func (r *settingsRepo) AlertDestination(ctx context.Context, siteID string) (string, error) {
	return r.Get(ctx, settingAlertDestination+":"+siteID)
}

// SetSafetyChannel sets the broadcast chat for daily safety tips and
// activity reminders.
func (r *settingsRepo) SetSafetyChannel(ctx context.Context, chatID string) error {
	return r.Set(ctx, settingSafetyChannel, chatID)
}

// SafetyChannel returns the configured broadcast chat.
func (r *settingsRepo) SafetyChannel(ctx context.Context) (string, error) {
	return r.Get(ctx, settingSafetyChannel)
}
