package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
)

// dialect holds the statements that differ between SQL engines
type dialect struct {
	name        string
	schema      []string
	upsert      string
	insertStats string
}

// sqlStore is the shared database/sql implementation behind the SQLite and
// MySQL caches. Timestamps are stored as Unix nanoseconds so both engines
// compare them the same way; an expires_at of 0 never expires.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect, opts Options, logger *zap.Logger) (*sqlStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if _, err := db.Exec(d.insertStats); err != nil {
		return nil, fmt.Errorf("failed to initialise scan stats: %w", err)
	}

	return &sqlStore{
		db:      db,
		dialect: d,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Get retrieves the cached verdict for an address
func (s *sqlStore) Get(ctx context.Context, address string) (*core.Verdict, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload
		FROM verdict_cache
		WHERE address = ? AND (expires_at = 0 OR expires_at > ?)
	`, address, s.now().UnixNano()).Scan(&payload)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	return decodeVerdict(payload)
}

// Set stores a verdict
func (s *sqlStore) Set(ctx context.Context, verdict *core.Verdict) error {
	payload, err := encodeVerdict(verdict)
	if err != nil {
		return err
	}

	now := s.now()
	scannedAt := verdict.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = now
	}

	_, err = s.db.ExecContext(ctx, s.dialect.upsert,
		verdict.Address, verdict.IsThreat, payload, scannedAt.UnixNano(), s.opts.expiresAt(now))
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (s *sqlStore) Delete(ctx context.Context, address string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE address = ?
	`, address)

	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// List returns every live verdict, oldest first
func (s *sqlStore) List(ctx context.Context) ([]*core.Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM verdict_cache
		WHERE expires_at = 0 OR expires_at > ?
		ORDER BY scanned_at
	`, s.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	verdicts := make([]*core.Verdict, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		v, err := decodeVerdict(payload)
		if err != nil {
			s.logger.Warn("Skipping undecodable cache entry", zap.Error(err))
			continue
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	return verdicts, nil
}

// Clear removes every entry and resets stats
func (s *sqlStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM verdict_cache`); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE scan_stats
		SET safe_count = 0, threat_count = 0, total_scans = 0
		WHERE id = 1
	`); err != nil {
		return fmt.Errorf("failed to reset scan stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache clear: %w", err)
	}
	return nil
}

// SaveFeedback appends a user judgement for an address
func (s *sqlStore) SaveFeedback(ctx context.Context, feedback *core.Feedback) error {
	payload, err := encodeFeedback(feedback)
	if err != nil {
		return err
	}

	createdAt := feedback.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdict_feedback (id, address, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, feedback.ID, feedback.Address, payload, createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the judgements for an address in submission order
func (s *sqlStore) ListFeedback(ctx context.Context, address string) ([]*core.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM verdict_feedback
		WHERE address = ?
		ORDER BY created_at
	`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	feedback := make([]*core.Feedback, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		f, err := decodeFeedback(payload)
		if err != nil {
			s.logger.Warn("Skipping undecodable feedback", zap.Error(err))
			continue
		}
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return feedback, nil
}

// RecordScan increments the scan counters
func (s *sqlStore) RecordScan(ctx context.Context, isThreat bool) error {
	threat, safe := 0, 1
	if isThreat {
		threat, safe = 1, 0
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_stats
		SET safe_count = safe_count + ?, threat_count = threat_count + ?, total_scans = total_scans + 1
		WHERE id = 1
	`, safe, threat)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// Stats returns the scan counters
func (s *sqlStore) Stats(ctx context.Context) (core.Stats, error) {
	var stats core.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT safe_count, threat_count, total_scans
		FROM scan_stats
		WHERE id = 1
	`).Scan(&stats.SafeCount, &stats.ThreatCount, &stats.TotalScans)
	if err != nil {
		return core.Stats{}, fmt.Errorf("failed to query scan stats: %w", err)
	}
	return stats, nil
}

// Cleanup removes expired entries and trims the table to MaxEntries, oldest first
func (s *sqlStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE expires_at <> 0 AND expires_at <= ?
	`, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	if s.opts.MaxEntries <= 0 {
		return nil
	}

	// The newest MaxEntries rows survive; find the scan time of the last one
	var cutoff int64
	err = s.db.QueryRowContext(ctx, `
		SELECT scanned_at
		FROM verdict_cache
		ORDER BY scanned_at DESC
		LIMIT 1 OFFSET ?
	`, s.opts.MaxEntries-1).Scan(&cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find eviction cutoff: %w", err)
	}

	result, err = s.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE scanned_at < ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to evict cache entries: %w", err)
	}
	if evicted, err := result.RowsAffected(); err == nil && evicted > 0 {
		s.logger.Info("Evicted cache entries over capacity",
			zap.Int64("evicted_count", evicted),
			zap.Int("max_entries", s.opts.MaxEntries))
	}
	return nil
}

// Stop closes the database connection
func (s *sqlStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.String("driver", s.dialect.name), zap.Error(err))
	}
}
