package whitelist

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Checker exempts trusted peers from scanning
type Checker struct {
	identities map[string]struct{}
	logger     *zap.Logger
}

// NewChecker creates a trusted-peer checker. Identities are compared
// case-insensitively after NFC normalization.
func NewChecker(identities []string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	set := make(map[string]struct{}, len(identities))
	normalized := make([]string, 0, len(identities))
	for _, identity := range identities {
		key := normalize(identity)
		if key == "" {
			continue
		}
		if _, dup := set[key]; dup {
			continue
		}
		set[key] = struct{}{}
		normalized = append(normalized, key)
	}

	if len(normalized) > 0 {
		logger.Info("Initialized trusted peer list", zap.Strings("identities", normalized))
	}

	return &Checker{
		identities: set,
		logger:     logger,
	}
}

// IsTrusted reports whether the conversation identity is on the trusted list
func (c *Checker) IsTrusted(identity string) bool {
	if len(c.identities) == 0 {
		return false
	}

	if _, ok := c.identities[normalize(identity)]; ok {
		c.logger.Debug("Conversation is trusted", zap.String("conversation", identity))
		return true
	}
	return false
}

// Len returns the number of distinct trusted identities
func (c *Checker) Len() int {
	return len(c.identities)
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(identity)))
}
