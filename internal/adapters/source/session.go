// Package source provides conversation sources and the session wrapper that
// gives them an explicit connect/disconnect lifecycle.
package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

// Backend is a conversation source that must be opened before use
type Backend interface {
	core.ConversationSource
	Open(ctx context.Context) error
	Close() error
}

// State is the lifecycle state of a Session
type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// Session guards a Backend so it is only used while connected. It is built
// once and shared by everything that reads conversations.
type Session struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewSession creates a disconnected session around backend
func NewSession(backend Backend, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{backend: backend, logger: logger}
}

// Connect opens the backend. Connecting an open session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnected {
		return nil
	}
	if err := s.backend.Open(ctx); err != nil {
		return core.NewScanError(core.KindSourceUnavailable, "connect", "", err)
	}
	s.state = StateConnected
	s.logger.Info("Conversation source connected")
	return nil
}

// Disconnect closes the backend. Later calls fail with core.ErrNotConnected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return nil
	}
	s.state = StateDisconnected
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("close conversation source: %w", err)
	}
	s.logger.Info("Conversation source disconnected")
	return nil
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) ListConversations(ctx context.Context) ([]core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected {
		return nil, core.ErrNotConnected
	}
	return s.backend.ListConversations(ctx)
}

func (s *Session) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]core.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected {
		return nil, core.ErrNotConnected
	}
	return s.backend.RecentMessages(ctx, conversationID, limit)
}
