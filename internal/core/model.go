package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultWindow is the number of recent messages aggregated per scan
	DefaultWindow = 10
	// DefaultLogCap is the maximum number of records kept in the scan log
	DefaultLogCap = 100
	// Separator joins message texts so the classifier can see turn boundaries
	Separator = " [SEP] "
	// TimestampLayout is the human-readable layout of persisted timestamps
	TimestampLayout = "2006-01-02 15:04:05"
)

// Label is the classification outcome of one conversation
type Label string

const (
	LabelNormal Label = "NORMAL"
	LabelScam   Label = "SCAM"
	// LabelError marks a conversation whose classification failed
	LabelError Label = "ERROR"
)

// Valid reports whether l is a label a classifier may return
func (l Label) Valid() bool {
	return l == LabelNormal || l == LabelScam
}

// IsScam reports whether l requires an alert
func (l Label) IsScam() bool {
	return l == LabelScam
}

// Result strings written to scan logs before labels were stored in English
var legacyLabels = map[string]Label{
	"로맨스 스캠": LabelScam,
	"정상 대화":  LabelNormal,
}

const legacyErrorPrefix = "오류 발생"

// ParseLabel converts a persisted result string to a Label, mapping the
// Korean result strings of older logs. Unknown values are returned as is.
func ParseLabel(s string) Label {
	s = strings.TrimSpace(s)
	if l, ok := legacyLabels[s]; ok {
		return l
	}
	if strings.HasPrefix(s, legacyErrorPrefix) {
		return LabelError
	}
	return Label(s)
}

// UnmarshalJSON implements json.Unmarshaler
func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("label must be a string: %w", err)
	}
	*l = ParseLabel(s)
	return nil
}

// IdentityMode selects which attribute of a conversation identifies it
type IdentityMode string

const (
	// IdentityByName keys conversations by peer display name
	IdentityByName IdentityMode = "name"
	// IdentityByID keys conversations by the transport's numeric id
	IdentityByID IdentityMode = "id"
)

// Conversation is one thread as enumerated by a ConversationSource
type Conversation struct {
	ID       int64
	Name     string
	OneOnOne bool
}

// Identity returns the join key of the conversation under the given mode
func (c Conversation) Identity(mode IdentityMode) string {
	if mode == IdentityByID {
		return strconv.FormatInt(c.ID, 10)
	}
	return c.Name
}

// RawMessage is a single text message, newest first as delivered by the source
type RawMessage struct {
	Text   string
	SentAt time.Time
}

// AggregatedInput is the classifier input built from one conversation
type AggregatedInput string

// Empty reports whether there is nothing to classify
func (a AggregatedInput) Empty() bool {
	return a == ""
}

// Timestamp is a point in time persisted as local "2006-01-02 15:04:05"
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// String formats the timestamp with TimestampLayout
func (t Timestamp) String() string {
	return t.Local().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimestamp parses TimestampLayout in local time, falling back to RFC 3339
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if parsed, err := time.ParseInLocation(TimestampLayout, s, time.Local); err == nil {
		return Timestamp{Time: parsed}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Timestamp{Time: parsed}, nil
}

// ScanRecord is one completed classification. Immutable once created.
type ScanRecord struct {
	User   string    `json:"user"`
	Result Label     `json:"result"`
	Time   Timestamp `json:"time"`
}

// ScanLog is a newest-first, capped sequence of records
type ScanLog []ScanRecord

// Prepend returns a new log with r at the head, truncated to limit records.
// A non-positive limit means DefaultLogCap.
func (l ScanLog) Prepend(r ScanRecord, limit int) ScanLog {
	if limit <= 0 {
		limit = DefaultLogCap
	}
	size := len(l) + 1
	if size > limit {
		size = limit
	}
	out := make(ScanLog, 0, size)
	out = append(out, r)
	for _, rec := range l {
		if len(out) == size {
			break
		}
		out = append(out, rec)
	}
	return out
}

// LastScanIndex maps a conversation identity to its latest completed scan
type LastScanIndex map[string]Timestamp

// Alert is the notification raised for a SCAM result
type Alert struct {
	Identity   string
	Label      Label
	DetectedAt time.Time
}
