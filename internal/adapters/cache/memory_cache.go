package cache

import (
	"context"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
)

// MemoryCache is an in-memory implementation of the CacheRepository interface.
// Entries are bounded by size and TTL and do not survive a restart.
type MemoryCache struct {
	entries *expirable.LRU[string, *core.Verdict]
	logger  *zap.Logger

	mu       sync.Mutex
	stats    core.Stats
	feedback map[string][]*core.Feedback
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(logger *zap.Logger, opts Options) *MemoryCache {
	return &MemoryCache{
		entries:  expirable.NewLRU[string, *core.Verdict](opts.MaxEntries, nil, opts.TTL),
		logger:   logger,
		feedback: make(map[string][]*core.Feedback),
	}
}

// Get retrieves the cached verdict for an address
func (c *MemoryCache) Get(ctx context.Context, address string) (*core.Verdict, error) {
	v, ok := c.entries.Get(address)
	if !ok {
		return nil, core.ErrCacheMiss
	}
	return v, nil
}

// Set stores a verdict
func (c *MemoryCache) Set(ctx context.Context, verdict *core.Verdict) error {
	c.entries.Add(verdict.Address, verdict)
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(ctx context.Context, address string) error {
	c.entries.Remove(address)
	return nil
}

// List returns every live verdict, oldest first
func (c *MemoryCache) List(ctx context.Context) ([]*core.Verdict, error) {
	return c.entries.Values(), nil
}

// Clear removes every entry and resets stats
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.entries.Purge()

	c.mu.Lock()
	c.stats = core.Stats{}
	c.mu.Unlock()
	return nil
}

// SaveFeedback appends a user judgement for an address
func (c *MemoryCache) SaveFeedback(ctx context.Context, feedback *core.Feedback) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feedback[feedback.Address] = append(c.feedback[feedback.Address], feedback)
	return nil
}

// ListFeedback returns the judgements for an address in submission order
func (c *MemoryCache) ListFeedback(ctx context.Context, address string) ([]*core.Feedback, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*core.Feedback{}, c.feedback[address]...), nil
}

// RecordScan increments the scan counters
func (c *MemoryCache) RecordScan(ctx context.Context, isThreat bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalScans++
	if isThreat {
		c.stats.ThreatCount++
	} else {
		c.stats.SafeCount++
	}
	return nil
}

// Stats returns the scan counters
func (c *MemoryCache) Stats(ctx context.Context) (core.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats, nil
}

// Cleanup is a no-op beyond logging; the LRU expires and evicts on its own
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.logger.Debug("Memory cache size", zap.Int("entries", c.entries.Len()))
	return nil
}
