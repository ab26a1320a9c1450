package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu            sync.Mutex
	conversations []Conversation
	messages      map[int64][]RawMessage
	listErr       error
	listCalls     int
}

func (s *fakeSource) ListConversations(context.Context) ([]Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]Conversation(nil), s.conversations...), nil
}

func (s *fakeSource) RecentMessages(_ context.Context, id int64, limit int) ([]RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[id]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *fakeSource) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

type fakeStore struct {
	mu        sync.Mutex
	log       ScanLog
	lastScans map[string]time.Time
	writeErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{lastScans: make(map[string]time.Time)}
}

func (s *fakeStore) AppendRecord(_ context.Context, record ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.log = s.log.Prepend(record, DefaultLogCap)
	return nil
}

func (s *fakeStore) LoadLog(context.Context) (ScanLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(ScanLog(nil), s.log...), nil
}

func (s *fakeStore) RecordScanTime(_ context.Context, identity string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.lastScans[identity] = at
	return nil
}

func (s *fakeStore) LoadLastScans(context.Context) (LastScanIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(LastScanIndex, len(s.lastScans))
	for k, v := range s.lastScans {
		index[k] = NewTimestamp(v)
	}
	return index, nil
}

func (s *fakeStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
	s.lastScans = make(map[string]time.Time)
	return nil
}

// failWrites makes every later write return err; nil restores normal behavior
func (s *fakeStore) failWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *fakeStore) lastScan(identity string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.lastScans[identity]
	return at, ok
}

type fakeAlerts struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *fakeAlerts) Notify(_ context.Context, alert Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *fakeAlerts) Sent() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Alert(nil), a.alerts...)
}

type trustSet map[string]bool

func (t trustSet) IsTrusted(identity string) bool { return t[identity] }

// keywordClassifier labels texts containing "money" as SCAM and fails on "boom"
type keywordClassifier struct {
	calls atomic.Int32
}

func (k *keywordClassifier) Classify(_ context.Context, text string) (Label, error) {
	k.calls.Add(1)
	switch {
	case strings.Contains(text, "boom"):
		return "", errors.New("classifier crashed")
	case strings.Contains(text, "money"):
		return LabelScam, nil
	default:
		return LabelNormal, nil
	}
}

// blockingClassifier holds every call until release is closed
type blockingClassifier struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingClassifier) Classify(ctx context.Context, _ string) (Label, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
		return LabelNormal, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	started  int
	finished []error
	recorded []ScanRecord
}

func (o *recordingObserver) ScanStarted(string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) ScanProgress(string, int, int) {}

func (o *recordingObserver) ScanFinished(_ string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, err)
}

func (o *recordingObserver) ResultRecorded(r ScanRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorded = append(o.recorded, r)
}

type harness struct {
	source   *fakeSource
	store    *fakeStore
	alerts   *fakeAlerts
	observer *recordingObserver
	coord    *Coordinator
}

func newHarness(t *testing.T, classifier Classifier, trust TrustPolicy, cfg CoordinatorConfig) *harness {
	t.Helper()
	h := &harness{
		source:   &fakeSource{messages: make(map[int64][]RawMessage)},
		store:    newFakeStore(),
		alerts:   &fakeAlerts{},
		observer: &recordingObserver{},
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	coord, err := NewCoordinator(h.source, classifier, h.store, h.alerts, h.observer, trust, zap.NewNop(), cfg)
	require.NoError(t, err)
	h.coord = coord
	return h
}

func (h *harness) addConversation(id int64, name string, oneOnOne bool, texts ...string) {
	h.source.mu.Lock()
	defer h.source.mu.Unlock()
	h.source.conversations = append(h.source.conversations, Conversation{ID: id, Name: name, OneOnOne: oneOnOne})
	h.source.messages[id] = msgs(texts...)
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.coord.Start(context.Background()))
	t.Cleanup(func() { _ = h.coord.Stop() })
}

func waitIdle(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.WaitIdle(ctx))
}

func TestNewCoordinator_Validation(t *testing.T) {
	src := &fakeSource{}
	clf := &keywordClassifier{}
	store := newFakeStore()
	alerts := &fakeAlerts{}

	_, err := NewCoordinator(nil, clf, store, alerts, nil, nil, nil, CoordinatorConfig{Interval: time.Minute})
	require.Error(t, err)

	_, err = NewCoordinator(src, clf, store, alerts, nil, nil, nil, CoordinatorConfig{})
	require.ErrorIs(t, err, ErrInvalidInterval)

	c, err := NewCoordinator(src, clf, store, alerts, nil, nil, nil, CoordinatorConfig{Interval: time.Minute})
	require.NoError(t, err)
	require.Equal(t, DefaultWindow, c.cfg.Window)
	require.Equal(t, IdentityByName, c.cfg.IdentityMode)
}

func TestCoordinator_NotStarted(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{})
	require.ErrorIs(t, h.coord.ScanAll(context.Background()), ErrNotStarted)
	require.ErrorIs(t, h.coord.ScanOne(context.Background(), "alice"), ErrNotStarted)
}

func TestScanOne_RecordsLastScanTime(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{MaxWorkers: 2})
	h.addConversation(1, "alice", true, "hello there")
	h.start(t)

	invoked := time.Now()
	require.NoError(t, h.coord.ScanOne(context.Background(), "alice"))
	waitIdle(t, h.coord)

	at, ok := h.store.lastScan("alice")
	require.True(t, ok)
	require.False(t, at.Before(invoked))

	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.Equal(t, "alice", log[0].User)
	require.Equal(t, LabelNormal, log[0].Result)
}

func TestScanOne_UnknownIdentityIsNoop(t *testing.T) {
	clf := &keywordClassifier{}
	h := newHarness(t, clf, nil, CoordinatorConfig{})
	h.addConversation(1, "alice", true, "hello")
	h.start(t)

	require.NoError(t, h.coord.ScanOne(context.Background(), "mallory"))
	waitIdle(t, h.coord)
	require.Zero(t, clf.calls.Load())
}

func TestScan_AlertOnlyForScam(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{MaxWorkers: 2})
	h.addConversation(1, "romeo", true, "i love you", "please send money")
	h.addConversation(2, "mom", true, "dinner at seven")
	h.start(t)

	require.NoError(t, h.coord.ScanAll(context.Background()))
	waitIdle(t, h.coord)

	sent := h.alerts.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "romeo", sent[0].Identity)
	require.Equal(t, LabelScam, sent[0].Label)

	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Len(t, log, 2)
}

func TestScan_EmptyConversationProducesNoTask(t *testing.T) {
	clf := &keywordClassifier{}
	h := newHarness(t, clf, nil, CoordinatorConfig{})
	h.addConversation(1, "silent", true)
	h.addConversation(2, "stickers", true, "", "  ")
	h.start(t)

	require.NoError(t, h.coord.ScanAll(context.Background()))
	waitIdle(t, h.coord)

	require.Zero(t, clf.calls.Load())
	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Empty(t, log)
	_, ok := h.store.lastScan("silent")
	require.False(t, ok)
}

func TestScanAll_SkipsGroupsAndTrusted(t *testing.T) {
	clf := &keywordClassifier{}
	h := newHarness(t, clf, trustSet{"bestie": true}, CoordinatorConfig{})
	h.addConversation(1, "family group", false, "send money")
	h.addConversation(2, "bestie", true, "send money lol")
	h.addConversation(3, "stranger", true, "hi")
	h.start(t)

	require.NoError(t, h.coord.ScanAll(context.Background()))
	waitIdle(t, h.coord)

	require.EqualValues(t, 1, clf.calls.Load())
	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.Equal(t, "stranger", log[0].User)
	require.Empty(t, h.alerts.Sent())
}

func TestScanAll_ClassifierFailureIsolated(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{MaxWorkers: 3})
	for i := 1; i <= 5; i++ {
		text := fmt.Sprintf("message %d", i)
		if i == 3 {
			text = "boom"
		}
		h.addConversation(int64(i), fmt.Sprintf("user-%d", i), true, text)
	}
	h.start(t)

	require.NoError(t, h.coord.ScanAll(context.Background()))
	waitIdle(t, h.coord)

	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Len(t, log, 5)

	byUser := make(map[string]Label)
	for _, rec := range log {
		byUser[rec.User] = rec.Result
	}
	require.Equal(t, LabelError, byUser["user-3"])
	for _, user := range []string{"user-1", "user-2", "user-4", "user-5"} {
		require.Equal(t, LabelNormal, byUser[user])
	}
	require.Empty(t, h.alerts.Sent())
}

func TestScanAll_SourceFailure(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{})
	h.source.listErr = errors.New("session expired")
	h.start(t)

	err := h.coord.ScanAll(context.Background())
	require.Error(t, err)
	require.True(t, IsKind(err, KindSourceUnavailable))

	h.observer.mu.Lock()
	defer h.observer.mu.Unlock()
	require.Len(t, h.observer.finished, 1)
	require.Error(t, h.observer.finished[0])
}

func TestScanOne_DedupesInFlight(t *testing.T) {
	clf := &blockingClassifier{release: make(chan struct{})}
	h := newHarness(t, clf, nil, CoordinatorConfig{MaxWorkers: 2})
	h.addConversation(1, "alice", true, "hello")
	h.start(t)

	require.NoError(t, h.coord.ScanOne(context.Background(), "alice"))
	require.NoError(t, h.coord.ScanOne(context.Background(), "alice"))
	require.Equal(t, 1, h.coord.Pending())

	close(clf.release)
	waitIdle(t, h.coord)
	require.EqualValues(t, 1, clf.calls.Load())
	require.Zero(t, h.coord.Pending())
}

func TestOnTaskComplete(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{})
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	h.coord.now = func() time.Time { return fixed }

	require.NoError(t, h.coord.OnTaskComplete(context.Background(), "romeo", LabelScam))
	require.NoError(t, h.coord.OnTaskComplete(context.Background(), "mom", LabelNormal))

	index, err := h.store.LoadLastScans(context.Background())
	require.NoError(t, err)
	require.True(t, index["romeo"].Equal(fixed))
	require.True(t, index["mom"].Equal(fixed))

	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Equal(t, "mom", log[0].User)
	require.Equal(t, "romeo", log[1].User)

	sent := h.alerts.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, fixed, sent[0].DetectedAt)
}

func TestOnTaskComplete_StoreFailure(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{})
	diskFull := errors.New("disk full")
	h.store.failWrites(diskFull)

	err := h.coord.OnTaskComplete(context.Background(), "romeo", LabelScam)
	require.Error(t, err)
	require.True(t, IsKind(err, KindPersistence))
	require.ErrorIs(t, err, diskFull)

	// the alert is raised exactly once even though nothing was persisted
	sent := h.alerts.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "romeo", sent[0].Identity)

	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Empty(t, log)
	_, ok := h.store.lastScan("romeo")
	require.False(t, ok)
}

func TestScan_ContinuesAfterStoreFailure(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{MaxWorkers: 2})
	h.addConversation(1, "romeo", true, "please send money")
	h.addConversation(2, "mom", true, "dinner at seven")
	h.start(t)

	h.store.failWrites(errors.New("read-only file system"))
	require.NoError(t, h.coord.ScanAll(context.Background()))
	waitIdle(t, h.coord)

	sent := h.alerts.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "romeo", sent[0].Identity)

	h.store.failWrites(nil)
	require.NoError(t, h.coord.ScanOne(context.Background(), "mom"))
	waitIdle(t, h.coord)

	log, err := h.store.LoadLog(context.Background())
	require.NoError(t, err)
	require.Len(t, log, 1)
	require.Equal(t, "mom", log[0].User)
	require.Equal(t, LabelNormal, log[0].Result)
	require.Len(t, h.alerts.Sent(), 1)
}

func TestSetInterval_RejectsNonPositive(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{Interval: 5 * time.Minute})

	err := h.coord.SetInterval(0)
	require.ErrorIs(t, err, ErrInvalidInterval)
	require.True(t, IsKind(err, KindConfiguration))
	require.Equal(t, 5*time.Minute, h.coord.Interval())

	require.NoError(t, h.coord.SetInterval(1))
	require.Equal(t, time.Minute, h.coord.Interval())
}

func TestPeriodicScan_ReconfiguredInterval(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{Interval: time.Hour})
	h.addConversation(1, "alice", true, "hello")
	h.start(t)

	h.coord.setInterval(20 * time.Millisecond)
	require.Eventually(t, func() bool { return h.source.ListCalls() >= 2 }, 2*time.Second, 5*time.Millisecond)

	// Going back to a long interval must cancel the short timer.
	h.coord.setInterval(time.Hour)
	time.Sleep(30 * time.Millisecond)
	calls := h.source.ListCalls()
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, calls, h.source.ListCalls())
}

func TestPeriodicScan_SkippedWhileBusy(t *testing.T) {
	clf := &blockingClassifier{release: make(chan struct{})}
	h := newHarness(t, clf, nil, CoordinatorConfig{Interval: time.Hour, SkipPeriodicWhenBusy: true})
	h.addConversation(1, "alice", true, "hello")
	h.start(t)

	require.NoError(t, h.coord.ScanAll(context.Background()))
	require.Eventually(t, func() bool { return clf.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	h.coord.setInterval(10 * time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, 1, h.source.ListCalls())

	close(clf.release)
	waitIdle(t, h.coord)
	require.Eventually(t, func() bool { return h.source.ListCalls() > 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestStop_Idempotent(t *testing.T) {
	h := newHarness(t, &keywordClassifier{}, nil, CoordinatorConfig{})
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Stop())
	require.NoError(t, h.coord.Stop())
	require.ErrorIs(t, h.coord.Start(context.Background()), ErrStopped)
}
