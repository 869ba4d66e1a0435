package session

import (
	"context"
	"sync"
	"time"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// MemoryStore is an in-memory Store. Suitable for testing and
// single-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memSession
}

type memSession struct {
	history        []model.ChatMessage
	pending        *model.PendingAction
	pendingExpires time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memSession)}
}

func (s *MemoryStore) session(sessionID string) *memSession {
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	sess := &memSession{}
	s.sessions[sessionID] = sess
	return sess
}

// History returns the stored conversation turns, oldest first.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := make([]model.ChatMessage, len(sess.history))
	copy(out, sess.history)
	return out, nil
}

// AppendHistory appends turns, trimming to the retention bound.
func (s *MemoryStore) AppendHistory(_ context.Context, sessionID string, turns ...model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(sessionID)
	sess.history = append(sess.history, turns...)
	if len(sess.history) > maxHistoryTurns {
		sess.history = sess.history[len(sess.history)-maxHistoryTurns:]
	}
	return nil
}

// ClearHistory removes all stored turns.
func (s *MemoryStore) ClearHistory(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.history = nil
	}
	return nil
}

// SetPending stores the action awaiting confirmation.
func (s *MemoryStore) SetPending(_ context.Context, sessionID string, action model.PendingAction, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(sessionID)
	sess.pending = &action
	sess.pendingExpires = time.Now().Add(ttl)
	return nil
}

// Pending returns the action awaiting confirmation, or nil.
func (s *MemoryStore) Pending(_ context.Context, sessionID string) (*model.PendingAction, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	var pending *model.PendingAction
	expired := false
	if ok && sess.pending != nil {
		if time.Now().After(sess.pendingExpires) {
			expired = true
		} else {
			copied := *sess.pending
			pending = &copied
		}
	}
	s.mu.RUnlock()

	if expired {
		s.mu.Lock()
		if sess.pending != nil && time.Now().After(sess.pendingExpires) {
			sess.pending = nil
		}
		s.mu.Unlock()
	}
	return pending, nil
}

// ClearPending removes the pending action.
func (s *MemoryStore) ClearPending(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.pending = nil
	}
	return nil
}
