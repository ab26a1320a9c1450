package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-scam-scanner/internal/adapters/store"
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates result stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResultStore creates the store selected by store.type
func (f *StoreFactory) CreateResultStore(ctx context.Context) (store.Store, error) {
	storeCfg := f.cfg.GetStore()

	var (
		resultStore store.Store
		err         error
	)
	switch storeCfg.Type {
	case "json", "":
		resultStore, err = store.NewJSONStore(storeCfg.DataDir, storeCfg.LogFile, storeCfg.LastScanFile, storeCfg.LogCap, f.logger)
	case "memory":
		resultStore = store.NewMemoryStore(storeCfg.LogCap, f.logger)
	case "sqlite":
		resultStore, err = store.NewSQLiteStore(storeCfg.SQLitePath, storeCfg.LogCap, f.logger)
	case "mysql":
		resultStore, err = store.NewMySQLStore(ctx, storeCfg.MySQLDSN, storeCfg.LogCap, f.logger)
	default:
		return nil, core.NewScanError(core.KindConfiguration, "create result store", "",
			fmt.Errorf("unsupported store type: %s", storeCfg.Type))
	}
	if err != nil {
		return nil, core.NewScanError(core.KindPersistence, "open result store", "", err)
	}

	f.logger.Info("Result store ready", zap.String("type", storeCfg.Type))
	return resultStore, nil
}
