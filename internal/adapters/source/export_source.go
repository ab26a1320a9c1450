package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

const (
	personalChat  = "personal_chat"
	typeMessage   = "message"
	exportDateFmt = "2006-01-02T15:04:05"
)

// ErrUnknownConversation is returned for ids absent from the export
var ErrUnknownConversation = errors.New("conversation not in export")

type exportFile struct {
	Chats *struct {
		List []exportChat `json:"list"`
	} `json:"chats"`

	// single-chat exports carry the chat at the top level
	exportChat
}

type exportChat struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Messages []exportMessage `json:"messages"`
}

type exportMessage struct {
	Type         string          `json:"type"`
	Date         string          `json:"date"`
	DateUnixtime string          `json:"date_unixtime"`
	Text         json.RawMessage `json:"text"`
}

// ExportSource reads conversations from a Telegram Desktop "Export chat
// history" result.json. The file is re-read whenever it changes on disk.
type ExportSource struct {
	path   string
	logger *zap.Logger

	mu            sync.RWMutex
	modTime       time.Time
	size          int64
	conversations []core.Conversation
	messages      map[int64][]core.RawMessage
}

// NewExportSource creates a source for the export at path
func NewExportSource(path string, logger *zap.Logger) *ExportSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportSource{path: path, logger: logger}
}

// Open loads the export and fails when it is missing or malformed
func (e *ExportSource) Open(context.Context) error {
	return e.reload(true)
}

// Close drops the loaded export
func (e *ExportSource) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conversations = nil
	e.messages = nil
	e.modTime = time.Time{}
	e.size = 0
	return nil
}

func (e *ExportSource) ListConversations(ctx context.Context) ([]core.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.reload(false); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]core.Conversation(nil), e.conversations...), nil
}

func (e *ExportSource) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]core.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	msgs, ok := e.messages[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownConversation, conversationID)
	}
	return newestFirst(msgs, limit), nil
}

func (e *ExportSource) reload(force bool) error {
	info, err := os.Stat(e.path)
	if err != nil {
		return fmt.Errorf("stat export: %w", err)
	}

	e.mu.RLock()
	unchanged := !force && info.ModTime().Equal(e.modTime) && info.Size() == e.size
	e.mu.RUnlock()
	if unchanged {
		return nil
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("read export: %w", err)
	}
	conversations, messages, err := parseExport(data)
	if err != nil {
		return fmt.Errorf("parse export %s: %w", e.path, err)
	}

	e.mu.Lock()
	e.conversations = conversations
	e.messages = messages
	e.modTime = info.ModTime()
	e.size = info.Size()
	e.mu.Unlock()

	e.logger.Info("Loaded chat export",
		zap.String("path", e.path),
		zap.Int("conversations", len(conversations)))
	return nil
}

func parseExport(data []byte) ([]core.Conversation, map[int64][]core.RawMessage, error) {
	var file exportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, err
	}

	var chats []exportChat
	switch {
	case file.Chats != nil:
		chats = file.Chats.List
	case file.Type != "":
		chats = []exportChat{file.exportChat}
	default:
		return nil, nil, errors.New("no chats in export")
	}

	conversations := make([]core.Conversation, 0, len(chats))
	messages := make(map[int64][]core.RawMessage, len(chats))
	for _, chat := range chats {
		conversations = append(conversations, core.Conversation{
			ID:       chat.ID,
			Name:     chat.Name,
			OneOnOne: chat.Type == personalChat,
		})

		msgs := make([]core.RawMessage, 0, len(chat.Messages))
		for _, m := range chat.Messages {
			if m.Type != typeMessage {
				continue
			}
			msgs = append(msgs, core.RawMessage{Text: messageText(m.Text), SentAt: messageTime(m)})
		}
		messages[chat.ID] = msgs
	}
	return conversations, messages, nil
}

// messageText flattens the text field, which is either a plain string or an
// array of strings and entity objects carrying their own text
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			b.WriteString(s)
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &entity); err == nil {
			b.WriteString(entity.Text)
		}
	}
	return b.String()
}

func messageTime(m exportMessage) time.Time {
	if m.DateUnixtime != "" {
		if secs, err := strconv.ParseInt(m.DateUnixtime, 10, 64); err == nil {
			return time.Unix(secs, 0)
		}
	}
	if t, err := time.ParseInLocation(exportDateFmt, m.Date, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
