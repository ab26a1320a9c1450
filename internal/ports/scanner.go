package ports

import (
	"context"
)

// Scanner defines the interface driving romance-scam scans
type Scanner interface {
	// Start starts the workers and the periodic timer
	Start(ctx context.Context) error

	// Stop stops the timer and the workers
	Stop() error

	// ScanAll dispatches a scan of every one-on-one conversation
	ScanAll(ctx context.Context) error

	// ScanOne dispatches a scan of a single conversation
	ScanOne(ctx context.Context, identity string) error

	// SetInterval changes the periodic scan interval, in minutes
	SetInterval(minutes int) error

	// WaitIdle blocks until every dispatched scan has been recorded
	WaitIdle(ctx context.Context) error
}
