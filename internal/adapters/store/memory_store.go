package store

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

// MemoryStore keeps the scan log and last-scan index in memory
type MemoryStore struct {
	mu        sync.RWMutex
	log       core.ScanLog
	lastScans core.LastScanIndex
	logCap    int
	logger    *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logCap int, logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		lastScans: make(core.LastScanIndex),
		logCap:    logCap,
		logger:    logger,
	}
}

func (s *MemoryStore) AppendRecord(_ context.Context, record core.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = s.log.Prepend(record, s.logCap)
	return nil
}

func (s *MemoryStore) LoadLog(context.Context) (core.ScanLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(core.ScanLog, len(s.log))
	copy(out, s.log)
	return out, nil
}

func (s *MemoryStore) RecordScanTime(_ context.Context, identity string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScans[identity] = core.NewTimestamp(at)
	return nil
}

func (s *MemoryStore) LoadLastScans(context.Context) (core.LastScanIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(core.LastScanIndex, len(s.lastScans))
	for identity, at := range s.lastScans {
		out[identity] = at
	}
	return out, nil
}

func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
	s.lastScans = make(core.LastScanIndex)
	s.logger.Info("In-memory scan results cleared")
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
