package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

// errCorrupt marks a document that exists but cannot be decoded
var errCorrupt = errors.New("corrupt document")

// JSONStore persists the scan log and the last-scan index as two JSON
// documents. Every write replaces the file through a rename so readers never
// observe a partial document. A document that cannot be decoded is renamed
// to <name>.corrupt-<unix nanos> before a new one is started; any other read
// error fails the write and leaves the file alone.
type JSONStore struct {
	mu           sync.Mutex
	logPath      string
	lastScanPath string
	logCap       int
	logger       *zap.Logger
	rename       func(oldpath, newpath string) error
}

// NewJSONStore creates a JSON store under dataDir. Relative file names are
// resolved against dataDir.
func NewJSONStore(dataDir, logFile, lastScanFile string, logCap int, logger *zap.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return &JSONStore{
		logPath:      resolve(dataDir, logFile),
		lastScanPath: resolve(dataDir, lastScanFile),
		logCap:       logCap,
		logger:       logger,
		rename:       os.Rename,
	}, nil
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// LogPath returns the location of the scan log document
func (s *JSONStore) LogPath() string { return s.logPath }

// LastScanPath returns the location of the last-scan document
func (s *JSONStore) LastScanPath() string { return s.lastScanPath }

func (s *JSONStore) AppendRecord(_ context.Context, record core.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.readLog()
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return err
		}
		if err := s.setAside(s.logPath, err); err != nil {
			return err
		}
		log = core.ScanLog{}
	}
	return s.writeJSON(s.logPath, log.Prepend(record, s.logCap))
}

func (s *JSONStore) LoadLog(context.Context) (core.ScanLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLog()
}

func (s *JSONStore) RecordScanTime(_ context.Context, identity string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readLastScans()
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return err
		}
		if err := s.setAside(s.lastScanPath, err); err != nil {
			return err
		}
		index = make(core.LastScanIndex)
	}
	index[identity] = core.NewTimestamp(at)
	return s.writeJSON(s.lastScanPath, index)
}

func (s *JSONStore) LoadLastScans(context.Context) (core.LastScanIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLastScans()
}

// Reset removes both documents
func (s *JSONStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, path := range []string{s.logPath, s.lastScanPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("Scan results cleared", zap.String("log", s.logPath), zap.String("last_scan", s.lastScanPath))
	return nil
}

// Close is a no-op
func (s *JSONStore) Close() error {
	return nil
}

// setAside moves an undecodable document out of the way so its content
// survives for inspection
func (s *JSONStore) setAside(path string, cause error) error {
	backup := fmt.Sprintf("%s.corrupt-%d", path, time.Now().UnixNano())
	if err := s.rename(path, backup); err != nil {
		return fmt.Errorf("set aside %s: %w", path, err)
	}
	s.logger.Warn("Unreadable scan document set aside, starting a new one",
		zap.String("path", path),
		zap.String("backup", backup),
		zap.Error(cause))
	return nil
}

func (s *JSONStore) readLog() (core.ScanLog, error) {
	var log core.ScanLog
	found, err := readJSON(s.logPath, &log)
	if err != nil || !found {
		return core.ScanLog{}, err
	}
	if log == nil {
		log = core.ScanLog{}
	}
	return log, nil
}

func (s *JSONStore) readLastScans() (core.LastScanIndex, error) {
	index := make(core.LastScanIndex)
	found, err := readJSON(s.lastScanPath, &index)
	if err != nil {
		return make(core.LastScanIndex), err
	}
	if !found || index == nil {
		return make(core.LastScanIndex), nil
	}
	return index, nil
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w: %w", path, errCorrupt, err)
	}
	return true, nil
}

// writeJSON writes v with non-ASCII text left unescaped so names stay readable
func (s *JSONStore) writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := s.rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
