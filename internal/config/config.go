// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fetcher modes.
const (
	ModeHeadless = "headless"
	ModeStatic   = "static"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TelegramConfig holds chat gateway credentials.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// FetcherConfig selects and tunes the page fetcher.
type FetcherConfig struct {
	Mode        string `mapstructure:"mode"`
	BaseURL     string `mapstructure:"base_url"`
	SearchPath  string `mapstructure:"search_path"`
	UserAgent   string `mapstructure:"user_agent"`
	MaxParallel int    `mapstructure:"max_parallel"`
}

// LookupConfig governs the fan-out coordinator.
type LookupConfig struct {
	PerTargetTimeoutSec int    `mapstructure:"per_target_timeout_seconds"`
	GlobalTimeoutSec    int    `mapstructure:"global_timeout_seconds"`
	MaxConcurrency      int    `mapstructure:"max_concurrency"`
	PreferredProvider   string `mapstructure:"preferred_provider"`
	MaxResults          int    `mapstructure:"max_results"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PHARMABOT")
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
	// Registered with an empty default so Unmarshal sees the key and
	// AutomaticEnv can fill it from PHARMABOT_TELEGRAM_TOKEN.
	v.SetDefault("telegram.token", "")
	v.SetDefault("fetcher.mode", ModeHeadless)
	v.SetDefault("fetcher.base_url", "https://www.pharmdata.co.uk")
	v.SetDefault("fetcher.search_path", "/search.php")
	v.SetDefault("fetcher.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36")
	v.SetDefault("fetcher.max_parallel", 3)
	v.SetDefault("lookup.per_target_timeout_seconds", 15)
	v.SetDefault("lookup.global_timeout_seconds", 45)
	v.SetDefault("lookup.max_concurrency", 3)
	v.SetDefault("lookup.preferred_provider", "Boots")
	v.SetDefault("lookup.max_results", 5)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetcher.Mode != ModeHeadless && c.Fetcher.Mode != ModeStatic {
		return fmt.Errorf("fetcher.mode must be %q or %q", ModeHeadless, ModeStatic)
	}
	if c.Fetcher.MaxParallel < 0 {
		return fmt.Errorf("fetcher.max_parallel must be >= 0")
	}
	if c.Lookup.PerTargetTimeoutSec <= 0 {
		return fmt.Errorf("lookup.per_target_timeout_seconds must be > 0")
	}
	if c.Lookup.GlobalTimeoutSec <= 0 {
		return fmt.Errorf("lookup.global_timeout_seconds must be > 0")
	}
	if c.Lookup.GlobalTimeoutSec < c.Lookup.PerTargetTimeoutSec {
		return fmt.Errorf("lookup.global_timeout_seconds must be >= lookup.per_target_timeout_seconds")
	}
	if c.Lookup.MaxConcurrency <= 0 {
		return fmt.Errorf("lookup.max_concurrency must be > 0")
	}
	if c.Lookup.MaxResults <= 0 {
		return fmt.Errorf("lookup.max_results must be > 0")
	}
	return nil
}

// PerTargetTimeout returns the per-target budget as a duration.
func (c Config) PerTargetTimeout() time.Duration {
	return time.Duration(c.Lookup.PerTargetTimeoutSec) * time.Second
}

// GlobalTimeout returns the whole-batch budget as a duration.
func (c Config) GlobalTimeout() time.Duration {
	return time.Duration(c.Lookup.GlobalTimeoutSec) * time.Second
}
