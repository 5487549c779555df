// Package jobs contains the daily scheduled tasks: the morning safety
// tip, the activity reminder, and the daily report trigger.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/burjnawas/sitecoord/internal/ai"
	"github.com/burjnawas/sitecoord/internal/dispatch"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/models"
)

// SafetyTip broadcasts one AI-generated safety tip to the configured
// safety channel. A fetch failure is reported once and then suppressed
// for the rest of the day; there is no retry loop.
type SafetyTip struct {
	ai         ai.Client
	settings   logstore.SettingsRepository
	dispatcher *dispatch.Dispatcher
	clock      clockwork.Clock
	location   *time.Location

	mu            sync.Mutex
	lastFailedDay string
}

// NewSafetyTip creates the safety tip job.
func NewSafetyTip(aiClient ai.Client, settings logstore.SettingsRepository, d *dispatch.Dispatcher, clock clockwork.Clock, loc *time.Location) *SafetyTip {
	if loc == nil {
		loc = time.UTC
	}
	return &SafetyTip{
		ai:         aiClient,
		settings:   settings,
		dispatcher: d,
		clock:      clock,
		location:   loc,
	}
}

// Run executes one broadcast.
func (j *SafetyTip) Run(ctx context.Context) error {
	chatID, err := j.settings.SafetyChannel(ctx)
	if err != nil {
		return fmt.Errorf("safety channel not configured: %w", err)
	}

	tip, err := j.ai.SafetyTip(ctx)
	if err != nil {
		day := j.clock.Now().In(j.location).Format("2006-01-02")
		j.mu.Lock()
		alreadyReported := j.lastFailedDay == day
		j.lastFailedDay = day
		j.mu.Unlock()
		if alreadyReported {
			return nil
		}
		return fmt.Errorf("safety tip fetch failed, suppressed for today: %w", err)
	}

	// The tip is dispatched verbatim; the AI already writes it in the
	// site locale.
	j.dispatcher.Dispatch(chatID, dispatch.Message{Text: tip}, models.SeverityInfo)
	return nil
}
