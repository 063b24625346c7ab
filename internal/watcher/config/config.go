package config

import (
	"golang-signal-notifier/pkg/config"
	"time"
)

// Watcher holds watcher-specific configuration.
type Watcher struct {
	RedisStreamSignalEventTimeout time.Duration `mapstructure:"redis_stream_signal_event_timeout"`

	// EventDedupeWindow suppresses re-dispatch of the same lifecycle
	// transition when the changefeed redelivers a row. Tunable because the
	// upstream redelivery latency is not part of its contract.
	EventDedupeWindow time.Duration `mapstructure:"event_dedupe_window"`

	InstrumentURLTemplate string `mapstructure:"instrument_url_template"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken            string `mapstructure:"bot_token"`
	ChatID              int64  `mapstructure:"chat_id"`
	MaxMessagePerSecond int    `mapstructure:"max_message_per_second"`
}

// Config holds the full configuration for the watcher service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	Watcher  Watcher         `mapstructure:"watcher"`
	Telegram Telegram        `mapstructure:"telegram"`
}

// Load loads the watcher configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
