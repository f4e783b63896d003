package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/adapters/cache"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, err
	}
	opts := cache.Options{TTL: cacheCfg.TTL, MaxEntries: cacheCfg.MaxEntries}

	switch cacheCfg.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, opts), nil
	case "sqlite":
		if cacheCfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cacheCfg.SQLitePath), 0755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		return cache.NewSQLiteCache(cacheCfg.SQLitePath, f.logger, opts)
	case "mysql":
		return cache.NewMySQLCache(cacheCfg.MySQLDSN, f.logger, opts)
	case "redis":
		redisCfg, err := f.cfg.GetRedis()
		if err != nil {
			return nil, err
		}
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:         redisCfg.Addr,
			Password:     redisCfg.Password,
			DB:           redisCfg.DB,
			PoolSize:     redisCfg.PoolSize,
			DialTimeout:  redisCfg.DialTimeout,
			ReadTimeout:  redisCfg.ReadTimeout,
			WriteTimeout: redisCfg.WriteTimeout,
		}, f.logger, opts)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheCfg.Type)
	}
}

// CreateVerdictCache wraps the configured repository in the cache owner
func (f *CacheFactory) CreateVerdictCache(repo core.CacheRepository) (*core.VerdictCache, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, err
	}
	return core.NewVerdictCache(repo, f.logger, cacheCfg.CleanupFrequency), nil
}
