package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"go.uber.org/zap"
)

var mysqlMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS scan_log (
	id         BIGINT AUTO_INCREMENT PRIMARY KEY,
	user       VARCHAR(255) NOT NULL,
	result     VARCHAR(16) NOT NULL,
	scanned_at DATETIME NOT NULL
) CHARACTER SET utf8mb4
`,
	`
CREATE TABLE IF NOT EXISTS last_scan (
	identity   VARCHAR(255) PRIMARY KEY,
	scanned_at DATETIME NOT NULL
) CHARACTER SET utf8mb4
`,
}

// MySQLStore persists scan results in a MySQL database
type MySQLStore struct {
	db        *sql.DB
	logCap    int
	logger    *zap.Logger
	closeOnce sync.Once
}

// NewMySQLStore connects to the database described by dsn and applies the schema.
// Timestamps are exchanged as local time.
func NewMySQLStore(ctx context.Context, dsn string, logCap int, logger *zap.Logger) (*MySQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if logCap <= 0 {
		logCap = core.DefaultLogCap
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.Local

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create MySQL connector: %w", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}
	for i, stmt := range mysqlMigrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}

	logger.Info("Connected to MySQL result store", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBName))
	return &MySQLStore{db: db, logCap: logCap, logger: logger}, nil
}

func (s *MySQLStore) AppendRecord(ctx context.Context, record core.ScanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scan_log (user, result, scanned_at) VALUES (?, ?, ?)`,
		record.User, string(core.ParseLabel(string(record.Result))), record.Time.Time); err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}

	// MySQL cannot LIMIT inside IN; the derived table works around it.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM scan_log
		WHERE id NOT IN (
			SELECT id FROM (SELECT id FROM scan_log ORDER BY id DESC LIMIT ?) AS keep
		)
	`, s.logCap); err != nil {
		return fmt.Errorf("failed to trim scan log: %w", err)
	}

	return tx.Commit()
}

func (s *MySQLStore) LoadLog(ctx context.Context) (core.ScanLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user, result, scanned_at FROM scan_log ORDER BY id DESC`)
	if err != nil {
		return core.ScanLog{}, fmt.Errorf("failed to query scan log: %w", err)
	}
	defer rows.Close()

	log := core.ScanLog{}
	for rows.Next() {
		var (
			user, result string
			scannedAt    time.Time
		)
		if err := rows.Scan(&user, &result, &scannedAt); err != nil {
			return core.ScanLog{}, fmt.Errorf("failed to scan log row: %w", err)
		}
		log = append(log, core.ScanRecord{User: user, Result: core.ParseLabel(result), Time: core.NewTimestamp(scannedAt)})
	}
	return log, rows.Err()
}

func (s *MySQLStore) RecordScanTime(ctx context.Context, identity string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_scan (identity, scanned_at) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE scanned_at = VALUES(scanned_at)
	`, identity, at)
	if err != nil {
		return fmt.Errorf("failed to record scan time: %w", err)
	}
	return nil
}

func (s *MySQLStore) LoadLastScans(ctx context.Context) (core.LastScanIndex, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, scanned_at FROM last_scan`)
	if err != nil {
		return core.LastScanIndex{}, fmt.Errorf("failed to query last scans: %w", err)
	}
	defer rows.Close()

	index := make(core.LastScanIndex)
	for rows.Next() {
		var (
			identity  string
			scannedAt time.Time
		)
		if err := rows.Scan(&identity, &scannedAt); err != nil {
			return core.LastScanIndex{}, fmt.Errorf("failed to scan last-scan row: %w", err)
		}
		index[identity] = core.NewTimestamp(scannedAt)
	}
	return index, rows.Err()
}

func (s *MySQLStore) Reset(ctx context.Context) error {
	for _, table := range []string{"scan_log", "last_scan"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	s.logger.Info("Scan results cleared")
	return nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
