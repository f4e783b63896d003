package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			address VARCHAR(768) PRIMARY KEY,
			is_threat BOOLEAN NOT NULL,
			payload MEDIUMBLOB NOT NULL,
			scanned_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_verdict_expires_at (expires_at),
			INDEX idx_verdict_scanned_at (scanned_at)
		)
	`, `
		CREATE TABLE IF NOT EXISTS scan_stats (
			id INT PRIMARY KEY,
			safe_count BIGINT NOT NULL DEFAULT 0,
			threat_count BIGINT NOT NULL DEFAULT 0,
			total_scans BIGINT NOT NULL DEFAULT 0
		)
	`, `
		CREATE TABLE IF NOT EXISTS verdict_feedback (
			id VARCHAR(36) PRIMARY KEY,
			address VARCHAR(768) NOT NULL,
			payload BLOB NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_feedback_address (address)
		)
	`},
	upsert: `
		INSERT INTO verdict_cache (address, is_threat, payload, scanned_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			is_threat = VALUES(is_threat),
			payload = VALUES(payload),
			scanned_at = VALUES(scanned_at),
			expires_at = VALUES(expires_at)
	`,
	insertStats: `INSERT IGNORE INTO scan_stats (id) VALUES (1)`,
}

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	*sqlStore
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, opts Options) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	store, err := newSQLStore(db, mysqlDialect, opts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &MySQLCache{sqlStore: store}, nil
}
