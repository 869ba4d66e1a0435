// Package session keeps per-session conversation state: the chat history
// the classifier needs for context resolution, and the pending mutating
// action held behind the confirmation gate.
package session

import (
	"context"
	"time"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// maxHistoryTurns bounds the stored history; older turns are discarded.
const maxHistoryTurns = 20

// Store persists session state. Implementations must be safe for
// concurrent use.
type Store interface {
	// History returns the stored conversation turns, oldest first.
	History(ctx context.Context, sessionID string) ([]model.ChatMessage, error)

	// AppendHistory appends turns, trimming to the retention bound.
	AppendHistory(ctx context.Context, sessionID string, turns ...model.ChatMessage) error

	// ClearHistory removes all stored turns.
	ClearHistory(ctx context.Context, sessionID string) error

	// SetPending stores the action awaiting confirmation, replacing any
	// previous one, expiring after ttl.
	SetPending(ctx context.Context, sessionID string, action model.PendingAction, ttl time.Duration) error

	// Pending returns the action awaiting confirmation, or nil.
	Pending(ctx context.Context, sessionID string) (*model.PendingAction, error)

	// ClearPending removes the pending action.
	ClearPending(ctx context.Context, sessionID string) error
}
