// Package ai provides the AI inference collaborator used for log
// summarization, photo analysis, and the daily safety tip.
package ai

import (
	"context"
	"errors"
)

// ErrServiceUnavailable marks a transient failure of the AI collaborator.
// Callers degrade rather than abort (reports carry "unavailable" insights).
var ErrServiceUnavailable = errors.New("ai service unavailable")

// ErrRateLimited marks an exhausted external quota. Callers back off and
// defer to the next cycle.
var ErrRateLimited = errors.New("ai rate limited")

// Client is the AI inference interface.
type Client interface {
	// Summarize condenses aggregate site log text into report insights.
	Summarize(ctx context.Context, text string) (string, error)

	// AnalyzeImage describes a site photo. The caption, when present,
	// is passed as additional context.
	AnalyzeImage(ctx context.Context, image []byte, caption string) (string, error)

	// SafetyTip produces one short safety tip for the morning broadcast.
	SafetyTip(ctx context.Context) (string, error)
}
