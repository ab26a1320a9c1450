// Package alert delivers SCAM notifications
package alert

import (
	"context"
	"errors"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

// LogDispatcher writes every alert to the log at Warn level
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a dispatcher that only logs
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Notify(_ context.Context, alert core.Alert) error {
	d.logger.Warn("Scam alert",
		zap.String("conversation", alert.Identity),
		zap.String("label", string(alert.Label)),
		zap.String("detected_at", core.NewTimestamp(alert.DetectedAt).String()))
	return nil
}

// NopDispatcher discards alerts
type NopDispatcher struct{}

func (NopDispatcher) Notify(context.Context, core.Alert) error { return nil }

// MultiDispatcher fans an alert out to every dispatcher
type MultiDispatcher struct {
	dispatchers []core.AlertDispatcher
}

// NewMultiDispatcher creates a fan-out dispatcher
func NewMultiDispatcher(dispatchers ...core.AlertDispatcher) *MultiDispatcher {
	return &MultiDispatcher{dispatchers: dispatchers}
}

// Notify delivers to all dispatchers and joins their errors
func (m *MultiDispatcher) Notify(ctx context.Context, alert core.Alert) error {
	var errs []error
	for _, d := range m.dispatchers {
		if err := d.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
