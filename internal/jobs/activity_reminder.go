package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/burjnawas/sitecoord/internal/dispatch"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/models"
)

// ActivityReminder nudges the site crew when no log entry has been
// recorded for the current day by reminder time. The check is
// idempotent: a second run on the same day is a no-op whether or not
// entries exist by then.
type ActivityReminder struct {
	siteID     string
	logs       logstore.LogRepository
	settings   logstore.SettingsRepository
	dispatcher *dispatch.Dispatcher
	formatter  dispatch.Formatter
	clock      clockwork.Clock
	location   *time.Location

	mu              sync.Mutex
	lastRemindedDay string
}

// NewActivityReminder creates the reminder job.
func NewActivityReminder(siteID string, logs logstore.LogRepository, settings logstore.SettingsRepository, d *dispatch.Dispatcher, f dispatch.Formatter, clock clockwork.Clock, loc *time.Location) *ActivityReminder {
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityReminder{
		siteID:     siteID,
		logs:       logs,
		settings:   settings,
		dispatcher: d,
		formatter:  f,
		clock:      clock,
		location:   loc,
	}
}

// Run executes one check.
func (j *ActivityReminder) Run(ctx context.Context) error {
	now := j.clock.Now().In(j.location)
	day := now.Format("2006-01-02")

	j.mu.Lock()
	alreadyReminded := j.lastRemindedDay == day
	j.mu.Unlock()
	if alreadyReminded {
		return nil
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.location)
	count, err := j.logs.CountRange(ctx, j.siteID, dayStart, now)
	if err != nil {
		return fmt.Errorf("count today's entries: %w", err)
	}
	if count > 0 {
		return nil
	}

	chatID, err := j.settings.SafetyChannel(ctx)
	if err != nil {
		return fmt.Errorf("safety channel not configured: %w", err)
	}

	j.mu.Lock()
	j.lastRemindedDay = day
	j.mu.Unlock()

	j.dispatcher.Dispatch(chatID, dispatch.Message{Text: j.formatter.FormatActivityReminder()}, models.SeverityInfo)
	return nil
}
