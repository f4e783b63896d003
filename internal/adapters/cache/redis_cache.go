package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
)

const (
	redisVerdictPrefix = "phishguard:verdict:"
	redisIndexKey      = "phishguard:verdicts"
	redisStatsKey      = "phishguard:stats"
	redisFeedbackKey   = "phishguard:feedback:"

	statsSafe   = "safe_count"
	statsThreat = "threat_count"
	statsTotal  = "total_scans"
)

// RedisConfig holds the redis connection settings
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisCache is a Redis implementation of the CacheRepository interface.
// Each verdict lives under its own key with the cache TTL; a sorted set
// indexes addresses by scan time for listing and trimming.
type RedisCache struct {
	client *redis.Client
	opts   Options
	logger *zap.Logger
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(cfg RedisConfig, logger *zap.Logger, opts Options) (*RedisCache, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB))

	return &RedisCache{
		client: client,
		opts:   opts,
		logger: logger,
	}, nil
}

func verdictKey(address string) string {
	return redisVerdictPrefix + address
}

// Get retrieves the cached verdict for an address
func (c *RedisCache) Get(ctx context.Context, address string) (*core.Verdict, error) {
	data, err := c.client.Get(ctx, verdictKey(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeVerdict(data)
}

// Set stores a verdict
func (c *RedisCache) Set(ctx context.Context, verdict *core.Verdict) error {
	data, err := encodeVerdict(verdict)
	if err != nil {
		return err
	}

	scannedAt := verdict.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, verdictKey(verdict.Address), data, c.opts.TTL)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(scannedAt.UnixNano()),
			Member: verdict.Address,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, address string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, verdictKey(address))
		pipe.ZRem(ctx, redisIndexKey, address)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// List returns every live verdict, oldest first
func (c *RedisCache) List(ctx context.Context) ([]*core.Verdict, error) {
	addresses, err := c.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list failed: %w", err)
	}

	verdicts := make([]*core.Verdict, 0, len(addresses))
	if len(addresses) == 0 {
		return verdicts, nil
	}

	keys := make([]string, len(addresses))
	for i, address := range addresses {
		keys[i] = verdictKey(address)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list failed: %w", err)
	}

	for i, value := range values {
		s, ok := value.(string)
		if !ok {
			// expired, the index entry goes on the next cleanup
			continue
		}
		v, err := decodeVerdict([]byte(s))
		if err != nil {
			c.logger.Warn("Skipping undecodable cache entry",
				zap.String("address", addresses[i]),
				zap.Error(err))
			continue
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

// Clear removes every entry and resets stats
func (c *RedisCache) Clear(ctx context.Context) error {
	addresses, err := c.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis clear failed: %w", err)
	}

	keys := make([]string, 0, len(addresses)+2)
	for _, address := range addresses {
		keys = append(keys, verdictKey(address))
	}
	keys = append(keys, redisIndexKey, redisStatsKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear failed: %w", err)
	}
	return nil
}

// SaveFeedback appends a user judgement for an address. Feedback does not expire.
func (c *RedisCache) SaveFeedback(ctx context.Context, feedback *core.Feedback) error {
	data, err := encodeFeedback(feedback)
	if err != nil {
		return err
	}
	if err := c.client.RPush(ctx, redisFeedbackKey+feedback.Address, data).Err(); err != nil {
		return fmt.Errorf("redis save feedback failed: %w", err)
	}
	return nil
}

// ListFeedback returns the judgements for an address in submission order
func (c *RedisCache) ListFeedback(ctx context.Context, address string) ([]*core.Feedback, error) {
	values, err := c.client.LRange(ctx, redisFeedbackKey+address, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list feedback failed: %w", err)
	}

	feedback := make([]*core.Feedback, 0, len(values))
	for _, value := range values {
		f, err := decodeFeedback([]byte(value))
		if err != nil {
			c.logger.Warn("Skipping undecodable feedback",
				zap.String("address", address),
				zap.Error(err))
			continue
		}
		feedback = append(feedback, f)
	}
	return feedback, nil
}

// RecordScan increments the scan counters
func (c *RedisCache) RecordScan(ctx context.Context, isThreat bool) error {
	field := statsSafe
	if isThreat {
		field = statsThreat
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, redisStatsKey, field, 1)
		pipe.HIncrBy(ctx, redisStatsKey, statsTotal, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record scan failed: %w", err)
	}
	return nil
}

// Stats returns the scan counters
func (c *RedisCache) Stats(ctx context.Context) (core.Stats, error) {
	fields, err := c.client.HGetAll(ctx, redisStatsKey).Result()
	if err != nil {
		return core.Stats{}, fmt.Errorf("redis stats failed: %w", err)
	}

	var stats core.Stats
	for name, dst := range map[string]*int64{
		statsSafe:   &stats.SafeCount,
		statsThreat: &stats.ThreatCount,
		statsTotal:  &stats.TotalScans,
	} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return core.Stats{}, fmt.Errorf("invalid %s counter %q: %w", name, raw, err)
		}
		*dst = n
	}
	return stats, nil
}

// Cleanup drops index entries whose verdict has expired and trims the cache
// to MaxEntries, oldest first
func (c *RedisCache) Cleanup(ctx context.Context) error {
	addresses, err := c.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis cleanup failed: %w", err)
	}

	live := make([]string, 0, len(addresses))
	stale := make([]interface{}, 0)
	for _, address := range addresses {
		n, err := c.client.Exists(ctx, verdictKey(address)).Result()
		if err != nil {
			return fmt.Errorf("redis cleanup failed: %w", err)
		}
		if n == 0 {
			stale = append(stale, address)
			continue
		}
		live = append(live, address)
	}

	if len(stale) > 0 {
		if err := c.client.ZRem(ctx, redisIndexKey, stale...).Err(); err != nil {
			return fmt.Errorf("redis cleanup failed: %w", err)
		}
	}
	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", len(stale)))

	if c.opts.MaxEntries <= 0 || len(live) <= c.opts.MaxEntries {
		return nil
	}

	evict := live[:len(live)-c.opts.MaxEntries]
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, address := range evict {
			pipe.Del(ctx, verdictKey(address))
			pipe.ZRem(ctx, redisIndexKey, address)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis eviction failed: %w", err)
	}

	c.logger.Info("Evicted cache entries over capacity",
		zap.Int("evicted_count", len(evict)),
		zap.Int("max_entries", c.opts.MaxEntries))
	return nil
}

// Stop closes the redis connection
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close redis connection", zap.Error(err))
	}
}
