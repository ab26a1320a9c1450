package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

var sqliteMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS scan_log (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user       TEXT NOT NULL,
  result     TEXT NOT NULL CHECK(result IN ('NORMAL','SCAM','ERROR')),
  scanned_at TEXT NOT NULL
);
`,
	`
CREATE TABLE IF NOT EXISTS last_scan (
  identity   TEXT PRIMARY KEY,
  scanned_at TEXT NOT NULL
);
`,
}

// SQLiteStore persists scan results in a SQLite database
type SQLiteStore struct {
	db        *sql.DB
	logCap    int
	logger    *zap.Logger
	closeOnce sync.Once
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies the schema
func NewSQLiteStore(dbPath string, logCap int, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if logCap <= 0 {
		logCap = core.DefaultLogCap
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(dbPath))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// results are written by a single consumer; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	for i, stmt := range sqliteMigrations {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}

	logger.Info("Opened SQLite result store", zap.String("path", dbPath))
	return &SQLiteStore{db: db, logCap: logCap, logger: logger}, nil
}

func (s *SQLiteStore) AppendRecord(ctx context.Context, record core.ScanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scan_log (user, result, scanned_at) VALUES (?, ?, ?)`,
		record.User, string(core.ParseLabel(string(record.Result))), record.Time.String()); err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM scan_log
		WHERE id NOT IN (SELECT id FROM scan_log ORDER BY id DESC LIMIT ?)
	`, s.logCap)
	if err != nil {
		return fmt.Errorf("failed to trim scan log: %w", err)
	}
	if trimmed, err := res.RowsAffected(); err == nil && trimmed > 0 {
		s.logger.Debug("Trimmed scan log", zap.Int64("removed", trimmed))
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadLog(ctx context.Context) (core.ScanLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user, result, scanned_at FROM scan_log ORDER BY id DESC`)
	if err != nil {
		return core.ScanLog{}, fmt.Errorf("failed to query scan log: %w", err)
	}
	defer rows.Close()

	log := core.ScanLog{}
	for rows.Next() {
		var user, result, scannedAt string
		if err := rows.Scan(&user, &result, &scannedAt); err != nil {
			return core.ScanLog{}, fmt.Errorf("failed to scan log row: %w", err)
		}
		ts, err := core.ParseTimestamp(scannedAt)
		if err != nil {
			return core.ScanLog{}, err
		}
		log = append(log, core.ScanRecord{User: user, Result: core.ParseLabel(result), Time: ts})
	}
	return log, rows.Err()
}

func (s *SQLiteStore) RecordScanTime(ctx context.Context, identity string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_scan (identity, scanned_at) VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET scanned_at = excluded.scanned_at
	`, identity, core.NewTimestamp(at).String())
	if err != nil {
		return fmt.Errorf("failed to record scan time: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadLastScans(ctx context.Context) (core.LastScanIndex, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, scanned_at FROM last_scan`)
	if err != nil {
		return core.LastScanIndex{}, fmt.Errorf("failed to query last scans: %w", err)
	}
	defer rows.Close()

	index := make(core.LastScanIndex)
	for rows.Next() {
		var identity, scannedAt string
		if err := rows.Scan(&identity, &scannedAt); err != nil {
			return core.LastScanIndex{}, fmt.Errorf("failed to scan last-scan row: %w", err)
		}
		ts, err := core.ParseTimestamp(scannedAt)
		if err != nil {
			return core.LastScanIndex{}, err
		}
		index[identity] = ts
	}
	return index, rows.Err()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"scan_log", "last_scan"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("Scan results cleared")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
