package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when an alert is dropped because the queue is full
	ErrQueueFull = errors.New("alert queue full")
	// ErrClosed is returned for alerts raised after Close
	ErrClosed = errors.New("alert dispatcher closed")
)

// AsyncDispatcher queues alerts and delivers them from a background
// goroutine so a slow backend never holds up result recording
type AsyncDispatcher struct {
	next    core.AlertDispatcher
	timeout time.Duration
	logger  *zap.Logger

	queue chan core.Alert
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncDispatcher starts a dispatcher delivering to next. Each delivery
// is bounded by timeout when it is positive.
func NewAsyncDispatcher(next core.AlertDispatcher, queueSize int, timeout time.Duration, logger *zap.Logger) *AsyncDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &AsyncDispatcher{
		next:    next,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan core.Alert, queueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify enqueues the alert without blocking
func (d *AsyncDispatcher) Notify(_ context.Context, alert core.Alert) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- alert:
		return nil
	default:
		d.logger.Warn("Alert queue full, dropping alert", zap.String("conversation", alert.Identity))
		return ErrQueueFull
	}
}

// Close stops accepting alerts and waits until queued ones are delivered
func (d *AsyncDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return nil
}

func (d *AsyncDispatcher) run() {
	defer close(d.done)
	for alert := range d.queue {
		d.deliver(alert)
	}
}

func (d *AsyncDispatcher) deliver(alert core.Alert) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.next.Notify(ctx, alert); err != nil {
		d.logger.Error("Failed to deliver alert",
			zap.String("conversation", alert.Identity),
			zap.Error(err))
	}
}
