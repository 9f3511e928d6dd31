// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Accounts AccountsConfig `mapstructure:"accounts"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LimiterConfig governs the inbound sliding-window rate limiter.
type LimiterConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// CacheConfig selects and sizes the response cache.
type CacheConfig struct {
	RedisURL          string `mapstructure:"redis_url"`
	MaxEntries        int    `mapstructure:"max_entries"`
	ProfileTTLSeconds int    `mapstructure:"profile_ttl_seconds"`
	PostTTLSeconds    int    `mapstructure:"post_ttl_seconds"`
	StoryTTLSeconds   int    `mapstructure:"story_ttl_seconds"`
}

// AccountsConfig controls the account pool bootstrap and cooldown policy.
type AccountsConfig struct {
	File            string `mapstructure:"file"`
	CooldownMinutes int    `mapstructure:"cooldown_minutes"`
	SessionDir      string `mapstructure:"session_dir"`
}

// ScraperConfig governs the upstream scraping client.
type ScraperConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxConcurrent  int    `mapstructure:"max_concurrent"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDIAGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("limiter.requests", 100)
	v.SetDefault("limiter.window_seconds", 60)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.profile_ttl_seconds", 3600)
	v.SetDefault("cache.post_ttl_seconds", 3600)
	v.SetDefault("cache.story_ttl_seconds", 300)
	v.SetDefault("accounts.file", "accounts.json")
	v.SetDefault("accounts.cooldown_minutes", 60)
	v.SetDefault("accounts.session_dir", "./sessions")
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.max_concurrent", 3)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Limiter.Requests <= 0 {
		return fmt.Errorf("limiter.requests must be > 0")
	}
	if c.Limiter.WindowSeconds <= 0 {
		return fmt.Errorf("limiter.window_seconds must be > 0")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}
	if c.Scraper.MaxConcurrent <= 0 {
		return fmt.Errorf("scraper.max_concurrent must be > 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// ScrapeTimeout returns the scraping client's hard network timeout.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// Cooldown returns the account cooldown applied after a rate-limit signal.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.Accounts.CooldownMinutes) * time.Minute
}

// LimiterWindow returns the inbound limiter's sliding window.
func (c Config) LimiterWindow() time.Duration {
	return time.Duration(c.Limiter.WindowSeconds) * time.Second
}
