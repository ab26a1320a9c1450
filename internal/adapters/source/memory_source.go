package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikey/llm-scam-scanner/internal/core"
)

// MemorySource is an in-process conversation source. Messages are appended
// oldest first and returned newest first.
type MemorySource struct {
	mu            sync.RWMutex
	conversations []core.Conversation
	messages      map[int64][]core.RawMessage
}

// NewMemorySource creates an empty source
func NewMemorySource() *MemorySource {
	return &MemorySource{messages: make(map[int64][]core.RawMessage)}
}

// AddConversation registers a conversation, replacing one with the same id
func (m *MemorySource) AddConversation(conv core.Conversation, messages ...core.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := false
	for i, existing := range m.conversations {
		if existing.ID == conv.ID {
			m.conversations[i] = conv
			replaced = true
			break
		}
	}
	if !replaced {
		m.conversations = append(m.conversations, conv)
	}
	m.messages[conv.ID] = append([]core.RawMessage(nil), messages...)
}

// AppendMessage adds a message as the newest of the conversation
func (m *MemorySource) AppendMessage(conversationID int64, msg core.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[conversationID] = append(m.messages[conversationID], msg)
}

func (m *MemorySource) ListConversations(ctx context.Context) ([]core.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.Conversation(nil), m.conversations...), nil
}

func (m *MemorySource) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]core.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs, ok := m.messages[conversationID]
	if !ok {
		return nil, fmt.Errorf("unknown conversation %d", conversationID)
	}
	return newestFirst(msgs, limit), nil
}

func (m *MemorySource) Open(context.Context) error { return nil }

func (m *MemorySource) Close() error { return nil }

// newestFirst returns up to limit messages from an oldest-first slice, reversed
func newestFirst(msgs []core.RawMessage, limit int) []core.RawMessage {
	n := len(msgs)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]core.RawMessage, 0, n)
	for i := len(msgs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, msgs[i])
	}
	return out
}
