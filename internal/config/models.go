package config

import (
	"fmt"
	"time"
)

// RemoteConfig represents the configuration for the remote scorer
type RemoteConfig struct {
	Provider  string
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region         string
	ModelID        string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxAddressSize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxAddressSize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ModelName      string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxAddressSize int
}

// ContentConfig represents the page fetcher configuration
type ContentConfig struct {
	Enabled     bool
	Timeout     time.Duration
	MaxBodySize int64
	UserAgent   string

	// AllowPrivateNetworks permits fetching loopback, private and link-local hosts
	AllowPrivateNetworks bool
}

// CacheConfig represents the verdict cache configuration
type CacheConfig struct {
	Type             string
	TTL              time.Duration
	MaxEntries       int
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// RedisConfig represents the redis connection settings
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMTPConfig represents the mail relay used for notifications
type SMTPConfig struct {
	Host          string
	Port          int
	From          string
	To            []string
	SubjectPrefix string
	Timeout       time.Duration
}

// NotificationConfig represents the threat notification settings
type NotificationConfig struct {
	Level   string
	Channel string
	SMTP    SMTPConfig
}

// GetRemote returns the remote scorer configuration
func (c *Config) GetRemote() (RemoteConfig, error) {
	timeout, err := c.GetDuration("remote.timeout")
	if err != nil {
		return RemoteConfig{}, err
	}
	return RemoteConfig{
		Provider:  c.GetString("remote.provider"),
		BaseURL:   c.GetString("remote.base_url"),
		APIKey:    c.GetString("remote.api_key"),
		Timeout:   timeout,
		RateLimit: c.GetFloat64("remote.rate_limit"),
		Burst:     c.GetInt("remote.burst"),
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:         c.GetString("bedrock.region"),
		ModelID:        c.GetString("bedrock.model_id"),
		MaxTokens:      c.GetInt("bedrock.max_tokens"),
		Temperature:    float32(c.GetFloat64("bedrock.temperature")),
		TopP:           float32(c.GetFloat64("bedrock.top_p")),
		MaxAddressSize: c.GetInt("bedrock.max_address_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.GetString("gemini.api_key"),
		ModelName:      c.GetString("gemini.model_name"),
		MaxTokens:      c.GetInt("gemini.max_tokens"),
		Temperature:    float32(c.GetFloat64("gemini.temperature")),
		TopP:           float32(c.GetFloat64("gemini.top_p")),
		MaxAddressSize: c.GetInt("gemini.max_address_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		BaseURL:        c.GetString("openai.base_url"),
		ModelName:      c.GetString("openai.model_name"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		TopP:           float32(c.GetFloat64("openai.top_p")),
		MaxAddressSize: c.GetInt("openai.max_address_size"),
	}
}

// GetContent returns the page fetcher configuration
func (c *Config) GetContent() (ContentConfig, error) {
	timeout, err := c.GetDuration("content.timeout")
	if err != nil {
		return ContentConfig{}, err
	}
	return ContentConfig{
		Enabled:              c.GetBool("content.enabled"),
		Timeout:              timeout,
		MaxBodySize:          c.v.GetInt64("content.max_body_size"),
		UserAgent:            c.GetString("content.user_agent"),
		AllowPrivateNetworks: c.GetBool("content.allow_private_networks"),
	}, nil
}

// GetCache returns the verdict cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	maxEntries := c.GetInt("cache.max_entries")
	if maxEntries < 0 {
		return CacheConfig{}, fmt.Errorf("cache.max_entries must not be negative: %d", maxEntries)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		MaxEntries:       maxEntries,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetRedis returns the redis connection settings
func (c *Config) GetRedis() (RedisConfig, error) {
	cfg := RedisConfig{
		Addr:     c.GetString("redis.addr"),
		Password: c.GetString("redis.password"),
		DB:       c.GetInt("redis.db"),
		PoolSize: c.GetInt("redis.pool_size"),
	}
	var err error
	if cfg.DialTimeout, err = c.GetDuration("redis.dial_timeout"); err != nil {
		return RedisConfig{}, err
	}
	if cfg.ReadTimeout, err = c.GetDuration("redis.read_timeout"); err != nil {
		return RedisConfig{}, err
	}
	if cfg.WriteTimeout, err = c.GetDuration("redis.write_timeout"); err != nil {
		return RedisConfig{}, err
	}
	return cfg, nil
}

// GetNotifications returns the threat notification settings
func (c *Config) GetNotifications() (NotificationConfig, error) {
	timeout, err := c.GetDuration("notifications.smtp.timeout")
	if err != nil {
		return NotificationConfig{}, err
	}
	return NotificationConfig{
		Level:   c.GetString("notifications.level"),
		Channel: c.GetString("notifications.channel"),
		SMTP: SMTPConfig{
			Host:          c.GetString("notifications.smtp.host"),
			Port:          c.GetInt("notifications.smtp.port"),
			From:          c.GetString("notifications.smtp.from"),
			To:            c.GetStringSlice("notifications.smtp.to"),
			SubjectPrefix: c.GetString("notifications.smtp.subject_prefix"),
			Timeout:       timeout,
		},
	}, nil
}

// GetWeightOverrides returns the per-feature weight overrides
func (c *Config) GetWeightOverrides() (map[string]float64, error) {
	overrides := make(map[string]float64)
	if err := c.v.UnmarshalKey("scoring.weights", &overrides); err != nil {
		return nil, fmt.Errorf("invalid scoring.weights: %w", err)
	}
	return overrides, nil
}

// GetTrustedHosts returns the hosts that always resolve to a safe verdict
func (c *Config) GetTrustedHosts() []string {
	return c.GetStringSlice("trusted_hosts")
}
