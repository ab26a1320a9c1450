package core

import "go.uber.org/zap"

// LogObserver reports scan progress through the logger
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates an observer that logs every event
func NewLogObserver(logger *zap.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) ScanStarted(scanID string, total int) {
	o.logger.Info("Full scan started", zap.String("scan_id", scanID), zap.Int("conversations", total))
}

func (o *LogObserver) ScanProgress(scanID string, done, total int) {
	o.logger.Debug("Scan progress", zap.String("scan_id", scanID), zap.Int("done", done), zap.Int("total", total))
}

func (o *LogObserver) ScanFinished(scanID string, err error) {
	if err != nil {
		o.logger.Error("Error during scan", zap.String("scan_id", scanID), zap.Error(err))
		return
	}
	o.logger.Info("Full scan dispatched", zap.String("scan_id", scanID))
}

func (o *LogObserver) ResultRecorded(record ScanRecord) {
	o.logger.Info("Conversation analyzed",
		zap.String("conversation", record.User),
		zap.String("label", string(record.Result)),
		zap.String("time", record.Time.String()))
}

type nopObserver struct{}

func (nopObserver) ScanStarted(string, int)       {}
func (nopObserver) ScanProgress(string, int, int) {}
func (nopObserver) ScanFinished(string, error)    {}
func (nopObserver) ResultRecorded(ScanRecord)     {}
