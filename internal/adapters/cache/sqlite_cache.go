package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite3",
	schema: []string{`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			address TEXT PRIMARY KEY,
			is_threat BOOLEAN NOT NULL,
			payload BLOB NOT NULL,
			scanned_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`, `
		CREATE INDEX IF NOT EXISTS idx_verdict_expires_at ON verdict_cache(expires_at)
	`, `
		CREATE INDEX IF NOT EXISTS idx_verdict_scanned_at ON verdict_cache(scanned_at)
	`, `
		CREATE TABLE IF NOT EXISTS scan_stats (
			id INTEGER PRIMARY KEY,
			safe_count INTEGER NOT NULL DEFAULT 0,
			threat_count INTEGER NOT NULL DEFAULT 0,
			total_scans INTEGER NOT NULL DEFAULT 0
		)
	`, `
		CREATE TABLE IF NOT EXISTS verdict_feedback (
			id TEXT PRIMARY KEY,
			address TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)
	`, `
		CREATE INDEX IF NOT EXISTS idx_feedback_address ON verdict_feedback(address)
	`},
	upsert: `
		INSERT OR REPLACE INTO verdict_cache (address, is_threat, payload, scanned_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`,
	insertStats: `INSERT OR IGNORE INTO scan_stats (id) VALUES (1)`,
}

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	*sqlStore
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, opts Options) (*SQLiteCache, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases intact
	db.SetMaxOpenConns(1)

	store, err := newSQLStore(db, sqliteDialect, opts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteCache{sqlStore: store}, nil
}
