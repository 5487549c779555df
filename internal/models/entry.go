// Package models contains the core data structures for the site coordinator.
package models

import (
	"fmt"
	"time"
)

// EntryKind represents the kind of an inbound site log entry.
type EntryKind string

const (
	EntryKindText  EntryKind = "text"
	EntryKindPhoto EntryKind = "photo"
)

// LogEntry is a single site update submitted through the messaging
// transport. Entries are immutable once recorded.
type LogEntry struct {
	// ID is the store-assigned identifier.
	ID string `json:"id"`

	// Timestamp is when the update was received.
	Timestamp time.Time `json:"timestamp"`

	// AuthorID identifies the submitting user on the transport.
	AuthorID string `json:"author_id"`

	// AuthorName is the display name of the submitter, if known.
	AuthorName string `json:"author_name,omitempty"`

	// Kind is text or photo.
	Kind EntryKind `json:"kind"`

	// PayloadRef holds the message text for text entries, or the stored
	// file reference for photo entries.
	PayloadRef string `json:"payload_ref"`

	// Caption is the optional caption attached to a photo entry.
	Caption string `json:"caption,omitempty"`

	// SiteID identifies the construction site.
	SiteID string `json:"site_id"`
}

// Validate checks that all required fields are present.
func (e *LogEntry) Validate() error {
	if e.SiteID == "" {
		return fmt.Errorf("site_id is required")
	}
	if e.AuthorID == "" {
		return fmt.Errorf("author_id is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	switch e.Kind {
	case EntryKindText, EntryKindPhoto:
	default:
		return fmt.Errorf("invalid entry kind: %q", e.Kind)
	}
	if e.PayloadRef == "" {
		return fmt.Errorf("payload_ref is required")
	}
	return nil
}

// IsPhoto returns true for photo entries.
func (e *LogEntry) IsPhoto() bool {
	return e.Kind == EntryKindPhoto
}

// String returns a one-line representation used in rendered reports.
func (e *LogEntry) String() string {
	return e.Timestamp.Format(time.RFC3339) + " " + e.AuthorName + ": " + e.PayloadRef
}
