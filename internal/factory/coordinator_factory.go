package factory

import (
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/whitelist"
	"go.uber.org/zap"
)

// CoordinatorFactory assembles the scan coordinator from its collaborators
type CoordinatorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCoordinatorFactory creates a new coordinator factory
func NewCoordinatorFactory(cfg *config.Config, logger *zap.Logger) *CoordinatorFactory {
	return &CoordinatorFactory{cfg: cfg, logger: logger}
}

// CreateCoordinator validates scan.* and builds the coordinator
func (f *CoordinatorFactory) CreateCoordinator(
	source core.ConversationSource,
	classifier core.Classifier,
	store core.ResultStore,
	alerts core.AlertDispatcher,
) (*core.Coordinator, error) {
	scanCfg, err := f.cfg.GetScan()
	if err != nil {
		return nil, err
	}

	trust := whitelist.NewChecker(scanCfg.TrustedPeers, f.logger)
	return core.NewCoordinator(
		source,
		classifier,
		store,
		alerts,
		core.NewLogObserver(f.logger),
		trust,
		f.logger,
		scanCfg.CoordinatorConfig(),
	)
}
