package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CoordinatorConfig holds the tunables of the scan coordinator
type CoordinatorConfig struct {
	Interval             time.Duration
	Window               int
	MaxWorkers           int
	QueueSize            int
	SkipPeriodicWhenBusy bool
	IdentityMode         IdentityMode
	ClassifyTimeout      time.Duration
}

// Coordinator schedules scans, fans classification out to a bounded worker
// pool and reconciles results into the result store. Results are consumed
// by a single goroutine, so store mutations never run concurrently.
type Coordinator struct {
	source     ConversationSource
	classifier Classifier
	store      ResultStore
	alerts     AlertDispatcher
	observer   Observer
	trust      TrustPolicy
	logger     *zap.Logger
	cfg        CoordinatorConfig
	aggregator TextAggregator

	now   func() time.Time
	newID func() string

	tasks      chan ClassificationTask
	results    chan TaskResult
	intervalCh chan time.Duration
	stopCh     chan struct{}
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	pending  map[string]struct{}
	idle     chan struct{}
	interval time.Duration
	started  bool
	stopOnce sync.Once
}

// NewCoordinator creates a scan coordinator. observer and trust may be nil.
func NewCoordinator(
	source ConversationSource,
	classifier Classifier,
	store ResultStore,
	alerts AlertDispatcher,
	observer Observer,
	trust TrustPolicy,
	logger *zap.Logger,
	cfg CoordinatorConfig,
) (*Coordinator, error) {
	if source == nil {
		return nil, errors.New("coordinator: conversation source must not be nil")
	}
	if classifier == nil {
		return nil, errors.New("coordinator: classifier must not be nil")
	}
	if store == nil {
		return nil, errors.New("coordinator: result store must not be nil")
	}
	if alerts == nil {
		return nil, errors.New("coordinator: alert dispatcher must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if cfg.Interval <= 0 {
		return nil, NewScanError(KindConfiguration, "new coordinator", "", ErrInvalidInterval)
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.MaxWorkers
	}
	if cfg.IdentityMode == "" {
		cfg.IdentityMode = IdentityByName
	}

	idle := make(chan struct{})
	close(idle)

	return &Coordinator{
		source:     source,
		classifier: classifier,
		store:      store,
		alerts:     alerts,
		observer:   observer,
		trust:      trust,
		logger:     logger,
		cfg:        cfg,
		aggregator: NewTextAggregator(cfg.Window),
		now:        time.Now,
		newID:      uuid.NewString,
		tasks:      make(chan ClassificationTask, cfg.QueueSize),
		results:    make(chan TaskResult, cfg.MaxWorkers),
		intervalCh: make(chan time.Duration, 1),
		stopCh:     make(chan struct{}),
		pending:    make(map[string]struct{}),
		idle:       idle,
		interval:   cfg.Interval,
	}, nil
}

// Start launches the workers, the result consumer and the periodic timer
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}
	if c.started {
		return nil
	}

	ctx, c.cancel = context.WithCancel(ctx)
	for i := 0; i < c.cfg.MaxWorkers; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	c.wg.Add(2)
	go c.consume(ctx)
	go c.runTimer(ctx, c.interval)
	c.started = true

	c.logger.Info("Scan coordinator started",
		zap.Duration("interval", c.interval),
		zap.Int("window", c.cfg.Window),
		zap.Int("workers", c.cfg.MaxWorkers))
	return nil
}

// Stop halts the timer and the workers. Outstanding tasks are abandoned.
func (c *Coordinator) Stop() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.wg.Wait()
		c.logger.Info("Scan coordinator stopped")
	})
	return nil
}

// Interval returns the current periodic scan interval
func (c *Coordinator) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// SetInterval changes the periodic scan interval. The timer is restarted
// with the new interval at once; a scan in flight is not affected.
func (c *Coordinator) SetInterval(minutes int) error {
	if minutes < 1 {
		return NewScanError(KindConfiguration, "set interval", "", fmt.Errorf("%w: %d", ErrInvalidInterval, minutes))
	}
	c.setInterval(time.Duration(minutes) * time.Minute)
	return nil
}

func (c *Coordinator) setInterval(d time.Duration) {
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()

	// Keep only the latest value when the timer has not consumed the previous one.
	for {
		select {
		case c.intervalCh <- d:
			c.logger.Info("Scan interval updated", zap.Duration("interval", d))
			return
		default:
		}
		select {
		case <-c.intervalCh:
		default:
		}
	}
}

// Pending returns the number of conversations queued or being classified
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// WaitIdle blocks until every dispatched task has been recorded
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopCh:
		return ErrStopped
	}
}

// ScanAll dispatches a scan of every one-on-one conversation and returns
// without waiting for classification. An enumeration failure aborts the pass.
func (c *Coordinator) ScanAll(ctx context.Context) error {
	if !c.isStarted() {
		return ErrNotStarted
	}
	scanID := c.newID()

	conversations, err := c.source.ListConversations(ctx)
	if err != nil {
		scanErr := NewScanError(KindSourceUnavailable, "list conversations", "", err)
		c.observer.ScanFinished(scanID, scanErr)
		return scanErr
	}

	targets := make([]Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if conv.OneOnOne {
			targets = append(targets, conv)
		}
	}

	c.observer.ScanStarted(scanID, len(targets))
	for i, conv := range targets {
		if err := c.scanConversation(ctx, scanID, conv); err != nil {
			if errors.Is(err, ErrStopped) || ctx.Err() != nil {
				c.observer.ScanFinished(scanID, err)
				return err
			}
			c.logger.Error("Failed to scan conversation",
				zap.String("scan_id", scanID),
				zap.String("conversation", conv.Identity(c.cfg.IdentityMode)),
				zap.Error(err))
		}
		c.observer.ScanProgress(scanID, i+1, len(targets))
	}

	c.observer.ScanFinished(scanID, nil)
	return nil
}

// ScanOne dispatches a scan of the conversation with the given identity.
// Unknown conversations and conversations without text are skipped silently.
func (c *Coordinator) ScanOne(ctx context.Context, identity string) error {
	if !c.isStarted() {
		return ErrNotStarted
	}

	conversations, err := c.source.ListConversations(ctx)
	if err != nil {
		return NewScanError(KindSourceUnavailable, "list conversations", identity, err)
	}

	for _, conv := range conversations {
		if conv.OneOnOne && conv.Identity(c.cfg.IdentityMode) == identity {
			return c.scanConversation(ctx, c.newID(), conv)
		}
	}

	c.logger.Debug("Conversation not found, skipping", zap.String("conversation", identity))
	return nil
}

// OnTaskComplete records a finished classification. It updates the
// last-scan index and appends to the log; for SCAM it then raises an alert
// even when a store write failed. Store failures are returned last.
func (c *Coordinator) OnTaskComplete(ctx context.Context, identity string, label Label) error {
	now := c.now()
	var errs []error

	if err := c.store.RecordScanTime(ctx, identity, now); err != nil {
		errs = append(errs, NewScanError(KindPersistence, "record scan time", identity, err))
	}

	record := ScanRecord{User: identity, Result: label, Time: NewTimestamp(now)}
	if err := c.store.AppendRecord(ctx, record); err != nil {
		errs = append(errs, NewScanError(KindPersistence, "append record", identity, err))
	}
	c.observer.ResultRecorded(record)

	if label.IsScam() {
		c.logger.Warn("Romance scam detected", zap.String("conversation", identity))
		alert := Alert{Identity: identity, Label: label, DetectedAt: now}
		if err := c.alerts.Notify(ctx, alert); err != nil {
			c.logger.Error("Failed to dispatch alert", zap.String("conversation", identity), zap.Error(err))
		}
	}

	return errors.Join(errs...)
}

func (c *Coordinator) scanConversation(ctx context.Context, scanID string, conv Conversation) error {
	identity := conv.Identity(c.cfg.IdentityMode)

	if c.trust != nil && c.trust.IsTrusted(identity) {
		c.logger.Debug("Skipping trusted conversation", zap.String("conversation", identity))
		return nil
	}

	messages, err := c.source.RecentMessages(ctx, conv.ID, c.aggregator.Window())
	if err != nil {
		return NewScanError(KindSourceUnavailable, "recent messages", identity, err)
	}

	input := c.aggregator.Aggregate(messages)
	if input.Empty() {
		c.logger.Debug("No text messages, skipping", zap.String("conversation", identity))
		return nil
	}

	if !c.reserve(identity) {
		c.logger.Debug("Conversation already queued, skipping", zap.String("conversation", identity))
		return nil
	}

	task := ClassificationTask{ScanID: scanID, Identity: identity, Input: input}
	select {
	case c.tasks <- task:
		return nil
	case <-ctx.Done():
		c.release(identity)
		return ctx.Err()
	case <-c.stopCh:
		c.release(identity)
		return ErrStopped
	}
}

func (c *Coordinator) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case task := <-c.tasks:
			res := RunTask(ctx, c.classifier, task, c.cfg.ClassifyTimeout)
			if res.Err != nil {
				c.logger.Error("Classification failed",
					zap.String("scan_id", task.ScanID),
					zap.String("conversation", task.Identity),
					zap.Error(res.Err))
			}
			select {
			case c.results <- res:
			case <-c.stopCh:
				return
			}
		}
	}
}

func (c *Coordinator) consume(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case res := <-c.results:
			if err := c.OnTaskComplete(ctx, res.Task.Identity, res.Label); err != nil {
				c.logger.Error("Failed to persist scan result",
					zap.String("conversation", res.Task.Identity),
					zap.Error(err))
			}
			c.release(res.Task.Identity)
		}
	}
}

func (c *Coordinator) runTimer(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case d := <-c.intervalCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			interval = d
			timer.Reset(interval)
		case <-timer.C:
			timer.Reset(interval)
			c.periodicScan(ctx)
		}
	}
}

func (c *Coordinator) periodicScan(ctx context.Context) {
	if c.cfg.SkipPeriodicWhenBusy {
		if pending := c.Pending(); pending > 0 {
			c.logger.Info("Previous scan still in flight, skipping periodic scan", zap.Int("pending", pending))
			return
		}
	}
	if err := c.ScanAll(ctx); err != nil {
		c.logger.Error("Periodic scan failed", zap.Error(err))
	}
}

func (c *Coordinator) reserve(identity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[identity]; ok {
		return false
	}
	if len(c.pending) == 0 {
		c.idle = make(chan struct{})
	}
	c.pending[identity] = struct{}{}
	return true
}

func (c *Coordinator) release(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[identity]; !ok {
		return
	}
	delete(c.pending, identity)
	if len(c.pending) == 0 {
		close(c.idle)
	}
}

func (c *Coordinator) isStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}
