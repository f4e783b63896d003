package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/explain"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/scoring"
)

func testVerdict(address string, isThreat bool, scannedAt time.Time) *core.Verdict {
	risk := scoring.RiskLow
	if isThreat {
		risk = scoring.RiskHigh
	}
	vector := features.NewVector()
	vector[features.HasIPAddress] = 1
	return &core.Verdict{
		Address:    address,
		IsThreat:   isThreat,
		RiskLevel:  risk,
		Score:      0.8,
		Confidence: 0.6,
		Source:     core.SourceFallback,
		ScanID:     "scan-" + address,
		ScannedAt:  scannedAt.UTC(),
		Explanations: []explain.Attribution{
			{Feature: features.HasIPAddress, Description: "IP address used", Value: 1, Contribution: 0.95, Percent: 100},
		},
		Reasons:  []string{"Uses an IP address instead of a domain name"},
		Features: vector,
	}
}

func setupTestRedis(t *testing.T, opts Options) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr(), DialTimeout: time.Second}, zaptest.NewLogger(t), opts)
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	return c, mr
}

func setupTestSQLite(t *testing.T, opts Options) *SQLiteCache {
	c, err := NewSQLiteCache(":memory:", zaptest.NewLogger(t), opts)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func backends(t *testing.T, opts Options) map[string]core.CacheRepository {
	redisCache, _ := setupTestRedis(t, opts)
	return map[string]core.CacheRepository{
		"memory": NewMemoryCache(zaptest.NewLogger(t), opts),
		"sqlite": setupTestSQLite(t, opts),
		"redis":  redisCache,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	for name, repo := range backends(t, Options{}) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v := testVerdict("http://192.168.0.1/login", true, time.Now())

			require.NoError(t, repo.Set(ctx, v))

			got, err := repo.Get(ctx, v.Address)
			require.NoError(t, err)
			assert.Equal(t, v.Address, got.Address)
			assert.Equal(t, v.IsThreat, got.IsThreat)
			assert.Equal(t, v.RiskLevel, got.RiskLevel)
			assert.Equal(t, v.Score, got.Score)
			assert.Equal(t, v.ScanID, got.ScanID)
			assert.True(t, v.ScannedAt.Equal(got.ScannedAt))
			assert.Equal(t, v.Explanations, got.Explanations)
			assert.Equal(t, v.Reasons, got.Reasons)
			assert.Equal(t, v.Features, got.Features)
		})
	}
}

func TestRepositoryLastWriteWins(t *testing.T) {
	for name, repo := range backends(t, Options{}) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			address := "https://example.com"

			require.NoError(t, repo.Set(ctx, testVerdict(address, true, time.Now())))
			require.NoError(t, repo.Set(ctx, testVerdict(address, false, time.Now())))

			got, err := repo.Get(ctx, address)
			require.NoError(t, err)
			assert.False(t, got.IsThreat)

			all, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestRepositoryMissAndDelete(t *testing.T) {
	for name, repo := range backends(t, Options{}) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Get(ctx, "https://absent.example")
			assert.ErrorIs(t, err, core.ErrCacheMiss)

			v := testVerdict("https://example.org", false, time.Now())
			require.NoError(t, repo.Set(ctx, v))
			require.NoError(t, repo.Delete(ctx, v.Address))

			_, err = repo.Get(ctx, v.Address)
			assert.ErrorIs(t, err, core.ErrCacheMiss)
		})
	}
}

func TestRepositoryClearResetsStats(t *testing.T) {
	for name, repo := range backends(t, Options{}) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, repo.Set(ctx, testVerdict("https://a.example", false, time.Now())))
			require.NoError(t, repo.Set(ctx, testVerdict("http://b.example.xyz", true, time.Now())))
			require.NoError(t, repo.RecordScan(ctx, false))
			require.NoError(t, repo.RecordScan(ctx, true))
			require.NoError(t, repo.RecordScan(ctx, true))

			stats, err := repo.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, core.Stats{SafeCount: 1, ThreatCount: 2, TotalScans: 3}, stats)

			require.NoError(t, repo.Clear(ctx))

			_, err = repo.Get(ctx, "https://a.example")
			assert.ErrorIs(t, err, core.ErrCacheMiss)
			all, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)

			stats, err = repo.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, core.Stats{}, stats)
		})
	}
}

func TestRepositoryFeedbackSurvivesClear(t *testing.T) {
	for name, repo := range backends(t, Options{}) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			address := "http://192.168.0.1/login"
			now := time.Now().UTC()

			first := &core.Feedback{ID: "f1", Address: address, ScanID: "scan-1", WasThreat: true, IsCorrect: false, Comments: "my router", CreatedAt: now}
			second := &core.Feedback{ID: "f2", Address: address, WasThreat: true, IsCorrect: true, CreatedAt: now.Add(time.Second)}
			require.NoError(t, repo.SaveFeedback(ctx, first))
			require.NoError(t, repo.SaveFeedback(ctx, second))
			require.NoError(t, repo.SaveFeedback(ctx, &core.Feedback{ID: "f3", Address: "https://other.example", CreatedAt: now}))

			require.NoError(t, repo.Clear(ctx))

			got, err := repo.ListFeedback(ctx, address)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "f1", got[0].ID)
			assert.Equal(t, "my router", got[0].Comments)
			assert.False(t, got[0].IsCorrect)
			assert.True(t, got[0].CreatedAt.Equal(now))
			assert.Equal(t, "f2", got[1].ID)

			none, err := repo.ListFeedback(ctx, "https://absent.example")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestRepositoryTrimsOldestOverCapacity(t *testing.T) {
	opts := Options{MaxEntries: 2}
	for name, repo := range backends(t, opts) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)

			for i, address := range []string{"https://one.example", "https://two.example", "https://three.example"} {
				require.NoError(t, repo.Set(ctx, testVerdict(address, false, base.Add(time.Duration(i)*time.Minute))))
			}
			require.NoError(t, repo.Cleanup(ctx))

			_, err := repo.Get(ctx, "https://one.example")
			assert.ErrorIs(t, err, core.ErrCacheMiss)

			all, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
		})
	}
}

func TestSQLiteExpiredEntriesAreHidden(t *testing.T) {
	c := setupTestSQLite(t, Options{TTL: time.Minute})
	ctx := context.Background()
	now := time.Now()
	c.now = func() time.Time { return now }

	v := testVerdict("https://example.net", false, now)
	require.NoError(t, c.Set(ctx, v))

	_, err := c.Get(ctx, v.Address)
	require.NoError(t, err)

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = c.Get(ctx, v.Address)
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	require.NoError(t, c.Cleanup(ctx))
	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRedisExpiredIndexEntriesAreDropped(t *testing.T) {
	c, mr := setupTestRedis(t, Options{TTL: time.Minute})
	ctx := context.Background()

	v := testVerdict("https://example.net", true, time.Now())
	require.NoError(t, c.Set(ctx, v))
	assert.True(t, mr.Exists(verdictKey(v.Address)))

	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, v.Address)
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	require.NoError(t, c.Cleanup(ctx))
	members, err := mr.ZMembers(redisIndexKey)
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestNewRedisCacheConnectionFailure(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "localhost:1", DialTimeout: 100 * time.Millisecond}, zaptest.NewLogger(t), Options{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis connection failed")
}
