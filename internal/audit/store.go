// Package audit records every executed mutating action: who asked, which
// model and record, what happened. The trail is append-only and advisory —
// a write failure is logged, never allowed to fail the user's action.
package audit

import (
	"context"
	"time"
)

// Entry is one audit record.
type Entry struct {
	ID          int64     `json:"id"`
	OccurredAt  time.Time `json:"occurred_at"`
	SessionID   string    `json:"session_id"`
	SubjectID   string    `json:"subject_id"`
	Operation   string    `json:"operation"`
	Model       string    `json:"model"`
	RecordID    int64     `json:"record_id,omitempty"`
	Method      string    `json:"method,omitempty"`
	Success     bool      `json:"success"`
	Detail      string    `json:"detail,omitempty"`
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	SessionID string
	Model     string
	Operation string
	Limit     int
}

// Store persists audit entries.
type Store interface {
	// Append records one entry. The entry's ID and OccurredAt are assigned
	// by the store when zero.
	Append(ctx context.Context, entry Entry) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Entry, error)
}
