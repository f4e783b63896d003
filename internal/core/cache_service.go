package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// cacheRequest is a single operation executed by the cache owner goroutine
type cacheRequest struct {
	ctx   context.Context
	fn    func(ctx context.Context, repo CacheRepository) error
	errCh chan error
}

// VerdictCache owns a CacheRepository. Every operation is sent to a single
// goroutine over a channel, so callers never touch the store directly.
type VerdictCache struct {
	repo        CacheRepository
	logger      *zap.Logger
	cleanupFreq time.Duration
	requests    chan cacheRequest
	stopCh      chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewVerdictCache starts the cache owner goroutine. A positive cleanupFreq
// runs repository cleanup periodically.
func NewVerdictCache(repo CacheRepository, logger *zap.Logger, cleanupFreq time.Duration) *VerdictCache {
	c := &VerdictCache{
		repo:        repo,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		requests:    make(chan cacheRequest),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}

	go c.run()

	return c
}

func (c *VerdictCache) run() {
	defer close(c.done)

	var tick <-chan time.Time
	if c.cleanupFreq > 0 {
		ticker := time.NewTicker(c.cleanupFreq)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case req := <-c.requests:
			if err := req.ctx.Err(); err != nil {
				req.errCh <- err
				continue
			}
			req.errCh <- req.fn(req.ctx, c.repo)
		case <-tick:
			if err := c.repo.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up verdict cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

func (c *VerdictCache) do(ctx context.Context, fn func(ctx context.Context, repo CacheRepository) error) error {
	req := cacheRequest{ctx: ctx, fn: fn, errCh: make(chan error, 1)}

	select {
	case c.requests <- req:
	case <-c.stopCh:
		return ErrCacheClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns the cached verdict for an address
func (c *VerdictCache) Lookup(ctx context.Context, address string) (*Verdict, bool, error) {
	var verdict *Verdict
	err := c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		v, err := repo.Get(ctx, address)
		verdict = v
		return err
	})
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return verdict, true, nil
}

// Upsert stores a verdict, overwriting any previous entry for its address
func (c *VerdictCache) Upsert(ctx context.Context, verdict *Verdict) error {
	return c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		return repo.Set(ctx, verdict)
	})
}

// Clear removes every entry and zeroes the stats
func (c *VerdictCache) Clear(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		return repo.Clear(ctx)
	})
}

// RecordScan counts a completed scan
func (c *VerdictCache) RecordScan(ctx context.Context, isThreat bool) error {
	return c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		return repo.RecordScan(ctx, isThreat)
	})
}

// Stats returns the scan counters
func (c *VerdictCache) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		s, err := repo.Stats(ctx)
		stats = s
		return err
	})
	return stats, err
}

// SafeAddresses returns the addresses with a cached safe verdict, sorted
func (c *VerdictCache) SafeAddresses(ctx context.Context) ([]string, error) {
	verdicts, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		if !v.IsThreat {
			addresses = append(addresses, v.Address)
		}
	}
	sort.Strings(addresses)
	return addresses, nil
}

// ThreatVerdicts returns the cached threat verdicts, newest first
func (c *VerdictCache) ThreatVerdicts(ctx context.Context) ([]*Verdict, error) {
	verdicts, err := c.list(ctx)
	if err != nil {
		return nil, err
	}
	threats := make([]*Verdict, 0)
	for _, v := range verdicts {
		if v.IsThreat {
			threats = append(threats, v)
		}
	}
	sort.SliceStable(threats, func(i, j int) bool {
		return threats[i].ScannedAt.After(threats[j].ScannedAt)
	})
	return threats, nil
}

// SaveFeedback stores a user judgement
func (c *VerdictCache) SaveFeedback(ctx context.Context, feedback *Feedback) error {
	return c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		return repo.SaveFeedback(ctx, feedback)
	})
}

// Feedback returns the judgements recorded for an address
func (c *VerdictCache) Feedback(ctx context.Context, address string) ([]*Feedback, error) {
	var feedback []*Feedback
	err := c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		f, err := repo.ListFeedback(ctx, address)
		feedback = f
		return err
	})
	return feedback, err
}

func (c *VerdictCache) list(ctx context.Context) ([]*Verdict, error) {
	var verdicts []*Verdict
	err := c.do(ctx, func(ctx context.Context, repo CacheRepository) error {
		v, err := repo.List(ctx)
		verdicts = v
		return err
	})
	return verdicts, err
}

// Stop stops the owner goroutine and closes the repository if it holds resources
func (c *VerdictCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.done
		if stopper, ok := c.repo.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	})
}
