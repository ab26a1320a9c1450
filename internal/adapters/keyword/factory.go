package keyword

import (
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"go.uber.org/zap"
)

// Factory creates keyword classifiers
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new keyword classifier factory
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{cfg: cfg, logger: logger, textProcessor: textProcessor}
}

// CreateClassifier creates a keyword classifier from the keyword.* settings
func (f *Factory) CreateClassifier() *Classifier {
	keywordCfg := f.cfg.GetKeyword()
	return NewClassifier(keywordCfg.Terms, keywordCfg.MinHits, f.logger, f.textProcessor)
}
