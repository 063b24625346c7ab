package config

import (
	"golang-signal-notifier/pkg/config"
	"time"
)

// Feed holds feed-specific configuration.
type Feed struct {
	// EffectDedupeWindow absorbs same-tick redelivery of a notification row.
	// Kept short on purpose so legitimate later events are never suppressed.
	EffectDedupeWindow time.Duration `mapstructure:"effect_dedupe_window"`

	PreferenceCacheTTL time.Duration `mapstructure:"preference_cache_ttl"`
	CacheWarmLimit     int           `mapstructure:"cache_warm_limit"`
	EffectBufferSize   int           `mapstructure:"effect_buffer_size"`

	// Retention sweeper removes read notifications past their shelf life.
	RetentionCronSpec string        `mapstructure:"retention_cron_spec"`
	RetentionMaxAge   time.Duration `mapstructure:"retention_max_age"`
}

// Config holds the full configuration for the feed service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	Feed     Feed            `mapstructure:"feed"`
}

// Load loads the feed configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
