package core

import (
	"context"

	"github.com/mikey/phishguard/internal/features"
)

// RemoteScorer defines the interface for the remote scoring service
type RemoteScorer interface {
	// ScoreAddress scores an address on its own
	ScoreAddress(ctx context.Context, address string) (*RemoteResult, error)

	// ScoreContent scores an address together with its page signals
	ScoreContent(ctx context.Context, address string, signals *features.ContentSignals) (*RemoteResult, error)
}

// ContentFetcher retrieves page signals for an address on a best-effort basis
type ContentFetcher interface {
	// FetchSignals returns the signals of the resource behind an address
	FetchSignals(ctx context.Context, address string) (*features.ContentSignals, error)
}

// CacheRepository defines the interface for persisting verdicts and stats
type CacheRepository interface {
	// Get retrieves the verdict for an address, ErrCacheMiss when absent
	Get(ctx context.Context, address string) (*Verdict, error)

	// Set stores a verdict, replacing any existing one for the same address
	Set(ctx context.Context, verdict *Verdict) error

	// Delete removes a cache entry
	Delete(ctx context.Context, address string) error

	// List returns every live verdict
	List(ctx context.Context) ([]*Verdict, error)

	// Clear removes every entry and resets stats. Feedback is kept.
	Clear(ctx context.Context) error

	// SaveFeedback appends a user judgement for an address
	SaveFeedback(ctx context.Context, feedback *Feedback) error

	// ListFeedback returns the judgements for an address in submission order
	ListFeedback(ctx context.Context, address string) ([]*Feedback, error)

	// RecordScan increments the scan counters
	RecordScan(ctx context.Context, isThreat bool) error

	// Stats returns the scan counters
	Stats(ctx context.Context) (Stats, error)

	// Cleanup removes expired entries and enforces the size bound
	Cleanup(ctx context.Context) error
}

// EventSink receives scan state transitions
type EventSink interface {
	Publish(ctx context.Context, event ScanEvent)
}

// Notifier announces threat verdicts
type Notifier interface {
	NotifyThreat(ctx context.Context, verdict *Verdict) error
}
