package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-scam-scanner/internal/adapters/bedrock"
	"github.com/mikey/llm-scam-scanner/internal/adapters/gemini"
	"github.com/mikey/llm-scam-scanner/internal/adapters/keyword"
	"github.com/mikey/llm-scam-scanner/internal/adapters/openai"
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/utils"
	"go.uber.org/zap"
)

// ClassifierFactory creates the classifier selected by classifier.provider
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a new classifier based on the configuration.
// The result may implement io.Closer.
func (f *ClassifierFactory) CreateClassifier(ctx context.Context) (core.Classifier, error) {
	provider := f.cfg.GetClassifier().Provider
	f.logger.Info("Creating classifier", zap.String("provider", provider))

	switch provider {
	case "keyword", "":
		return keyword.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(), nil
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "gemini":
		classifier, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx)
		if err != nil {
			return nil, err
		}
		return classifier, nil
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx)
	default:
		return nil, core.NewScanError(core.KindConfiguration, "create classifier", "",
			fmt.Errorf("unsupported classifier provider: %s", provider))
	}
}
