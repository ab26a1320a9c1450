package core

import (
	"context"
	"time"
)

// ConversationSource enumerates conversations and yields their recent messages
type ConversationSource interface {
	// ListConversations returns every conversation visible to the account
	ListConversations(ctx context.Context) ([]Conversation, error)

	// RecentMessages returns up to limit text messages, newest first
	RecentMessages(ctx context.Context, conversationID int64, limit int) ([]RawMessage, error)
}

// Classifier maps an aggregated conversation text to a label
type Classifier interface {
	Classify(ctx context.Context, text string) (Label, error)
}

// ResultStore persists the scan log and the last-scan index
type ResultStore interface {
	// AppendRecord inserts at the head of the log and truncates it to the cap
	AppendRecord(ctx context.Context, record ScanRecord) error

	// LoadLog returns the persisted log, empty when none exists yet
	LoadLog(ctx context.Context) (ScanLog, error)

	// RecordScanTime sets the last-scan time of one conversation
	RecordScanTime(ctx context.Context, identity string, at time.Time) error

	// LoadLastScans returns the persisted index, empty when none exists yet
	LoadLastScans(ctx context.Context) (LastScanIndex, error)

	// Reset clears both the log and the index
	Reset(ctx context.Context) error
}

// AlertDispatcher raises a user-visible notification for a SCAM result
type AlertDispatcher interface {
	Notify(ctx context.Context, alert Alert) error
}

// TrustPolicy decides whether a conversation is exempt from scanning
type TrustPolicy interface {
	IsTrusted(identity string) bool
}

// Observer receives scan progress and status updates
type Observer interface {
	ScanStarted(scanID string, total int)
	ScanProgress(scanID string, done, total int)
	ScanFinished(scanID string, err error)
	ResultRecorded(record ScanRecord)
}
