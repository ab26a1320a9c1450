// Package keyword implements an offline classifier that counts known
// romance-scam phrases in the aggregated conversation.
package keyword

import (
	"context"
	"strings"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"go.uber.org/zap"
)

// Classifier labels a conversation SCAM when at least minHits distinct
// phrases occur in it
type Classifier struct {
	terms         []string
	minHits       int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifier creates a keyword classifier. Terms are normalized the same
// way as the input; duplicates and blanks are dropped.
func NewClassifier(terms []string, minHits int, logger *zap.Logger, textProcessor *utils.TextProcessor) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	if minHits < 1 {
		minHits = 1
	}

	seen := make(map[string]struct{}, len(terms))
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(textProcessor.Normalize(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		normalized = append(normalized, term)
	}

	return &Classifier{
		terms:         normalized,
		minHits:       minHits,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify never fails except on a cancelled context
func (c *Classifier) Classify(ctx context.Context, text string) (core.Label, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hits := c.Hits(text)
	if len(hits) >= c.minHits {
		c.logger.Debug("Keyword verdict", zap.Strings("hits", hits), zap.Int("min_hits", c.minHits))
		return core.LabelScam, nil
	}
	return core.LabelNormal, nil
}

// Hits returns the distinct terms found in text, in configuration order
func (c *Classifier) Hits(text string) []string {
	normalized := c.textProcessor.Normalize(text)
	var hits []string
	for _, term := range c.terms {
		if strings.Contains(normalized, term) {
			hits = append(hits, term)
		}
	}
	return hits
}
