package gemini

import (
	"context"
	"errors"

	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"go.uber.org/zap"
)

// Factory creates Gemini classifiers
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Gemini classifiers
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a new Gemini classifier
func (f *Factory) CreateClassifier(ctx context.Context) (*Classifier, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, errors.New("gemini.api_key is required for the gemini provider")
	}
	classifierCfg := f.cfg.GetClassifier()

	return NewClassifier(
		ctx,
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		geminiCfg.TopP,
		classifierCfg.Threshold,
		classifierCfg.MaxInputSize,
		f.logger,
		f.textProcessor,
	)
}
