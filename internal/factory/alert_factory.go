package factory

import (
	"fmt"

	"github.com/mikey/llm-scam-scanner/internal/adapters/alert"
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

// AlertFactory creates alert dispatchers based on configuration
type AlertFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAlertFactory creates a new alert factory
func NewAlertFactory(cfg *config.Config, logger *zap.Logger) *AlertFactory {
	return &AlertFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateAlertDispatcher creates the dispatcher selected by alert.type,
// wrapped in an AsyncDispatcher so delivery never blocks result recording
func (f *AlertFactory) CreateAlertDispatcher() (*alert.AsyncDispatcher, error) {
	alertCfg, err := f.cfg.GetAlert()
	if err != nil {
		return nil, err
	}

	var backend core.AlertDispatcher
	switch alertCfg.Type {
	case "log", "":
		backend = alert.NewLogDispatcher(f.logger)
	case "smtp":
		smtpDispatcher, err := alert.NewSMTPDispatcher(
			alertCfg.SMTP.Address,
			alertCfg.SMTP.From,
			alertCfg.SMTP.To,
			alertCfg.SMTP.SubjectPrefix,
			alertCfg.SMTP.Username,
			alertCfg.SMTP.Password,
			f.logger,
		)
		if err != nil {
			return nil, core.NewScanError(core.KindConfiguration, "create alert dispatcher", "", err)
		}
		backend = alert.NewMultiDispatcher(alert.NewLogDispatcher(f.logger), smtpDispatcher)
	case "none":
		backend = alert.NopDispatcher{}
	default:
		return nil, core.NewScanError(core.KindConfiguration, "create alert dispatcher", "",
			fmt.Errorf("unsupported alert type: %s", alertCfg.Type))
	}

	return alert.NewAsyncDispatcher(backend, alertCfg.QueueSize, alertCfg.Timeout, f.logger), nil
}
