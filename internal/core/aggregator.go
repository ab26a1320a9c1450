package core

import "strings"

// TextAggregator builds the classifier input for one conversation
type TextAggregator struct {
	window int
}

// NewTextAggregator creates an aggregator using at most window messages.
// A non-positive window means DefaultWindow.
func NewTextAggregator(window int) TextAggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	return TextAggregator{window: window}
}

// Window returns the number of messages the aggregator keeps
func (a TextAggregator) Window() int {
	return a.window
}

// Aggregate joins the texts of messages using the aggregator's window
func (a TextAggregator) Aggregate(messages []RawMessage) AggregatedInput {
	return Aggregate(messages, a.window)
}

// Aggregate joins up to window non-empty message texts with Separator,
// keeping the order in which the source delivered them. Messages whose text
// is empty after trimming do not count toward the window. The result is
// empty when no message has text.
func Aggregate(messages []RawMessage, window int) AggregatedInput {
	if window <= 0 {
		window = DefaultWindow
	}

	texts := make([]string, 0, min(window, len(messages)))
	for _, msg := range messages {
		if len(texts) == window {
			break
		}
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		texts = append(texts, text)
	}

	return AggregatedInput(strings.Join(texts, Separator))
}
