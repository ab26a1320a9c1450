package factory

import (
	"fmt"

	"github.com/mikey/llm-scam-scanner/internal/adapters/source"
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

// SourceFactory creates the conversation session
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSession wraps the backend selected by source.type in a disconnected Session
func (f *SourceFactory) CreateSession() (*source.Session, error) {
	sourceCfg := f.cfg.GetSource()

	var backend source.Backend
	switch sourceCfg.Type {
	case "export", "":
		if sourceCfg.ExportPath == "" {
			return nil, core.NewScanError(core.KindConfiguration, "create source", "",
				fmt.Errorf("source.export_path is required"))
		}
		backend = source.NewExportSource(sourceCfg.ExportPath, f.logger)
	case "memory":
		backend = source.NewMemorySource()
	default:
		return nil, core.NewScanError(core.KindConfiguration, "create source", "",
			fmt.Errorf("unsupported source type: %s", sourceCfg.Type))
	}
	return source.NewSession(backend, f.logger), nil
}
