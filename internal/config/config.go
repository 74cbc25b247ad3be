package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/strategia/internal/strategia"
)

// Config represents the complete application configuration
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig holds the analysis backend configuration
type FeedConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	SnapshotPath   string        `mapstructure:"snapshot_path"`
	Symbols        []string      `mapstructure:"symbols"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
}

// EngineConfig holds derivation tunables
type EngineConfig struct {
	DefaultTick    float64            `mapstructure:"default_tick"`
	Ticks          map[string]float64 `mapstructure:"ticks"`
	EntryBufferPct float64            `mapstructure:"entry_buffer_pct"`
	StopTicks      int                `mapstructure:"stop_ticks"`
	MinGapTicks    int                `mapstructure:"min_gap_ticks"`
	TPMinPct       float64            `mapstructure:"tp_min_pct"`
	TPMinStepPct   float64            `mapstructure:"tp_min_step_pct"`
	NearPct        float64            `mapstructure:"near_pct"`
	FeeRate        float64            `mapstructure:"fee_rate"`
}

// MonitorConfig holds alerting behavior configuration
type MonitorConfig struct {
	Cooldown       time.Duration `mapstructure:"cooldown"`
	MinSignalScore int           `mapstructure:"min_signal_score"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	MaxDerivations int    `mapstructure:"max_derivations"`
	DBPath         string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	// STRATEGIA_FEED_BASE_URL overrides feed.base_url
	v.SetEnvPrefix("STRATEGIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	d := strategia.DefaultConfig()

	v.SetDefault("feed.base_url", "http://localhost:8080")
	v.SetDefault("feed.poll_interval", "5m")
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay_base", "1s")
	v.SetDefault("feed.max_concurrent", 4)

	v.SetDefault("engine.default_tick", d.DefaultTick)
	v.SetDefault("engine.entry_buffer_pct", d.EntryBufferPct)
	v.SetDefault("engine.stop_ticks", d.StopTicks)
	v.SetDefault("engine.min_gap_ticks", d.MinGapTicks)
	v.SetDefault("engine.tp_min_pct", d.TPMinPct)
	v.SetDefault("engine.tp_min_step_pct", d.TPMinStepPct)
	v.SetDefault("engine.near_pct", d.NearPct)
	v.SetDefault("engine.fee_rate", d.FeeRate)

	v.SetDefault("monitor.cooldown", "1h")
	v.SetDefault("monitor.min_signal_score", 55)

	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.max_derivations", 1000)
	v.SetDefault("storage.db_path", "./data/strategia.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Feed.SnapshotPath == "" {
		if c.Feed.BaseURL == "" {
			return fmt.Errorf("feed.base_url is required unless feed.snapshot_path is set")
		}
		if len(c.Feed.Symbols) == 0 {
			return fmt.Errorf("feed.symbols must contain at least one symbol")
		}
		if c.Feed.PollInterval < 10*time.Second {
			return fmt.Errorf("feed.poll_interval must be at least 10 seconds")
		}
	}
	if c.Feed.MaxConcurrent < 1 {
		return fmt.Errorf("feed.max_concurrent must be at least 1")
	}

	if c.Engine.DefaultTick <= 0 {
		return fmt.Errorf("engine.default_tick must be positive")
	}
	for sym, tick := range c.Engine.Ticks {
		if tick <= 0 {
			return fmt.Errorf("engine.ticks.%s must be positive", sym)
		}
	}
	if c.Engine.TPMinPct <= 0 || c.Engine.TPMinPct >= 1 {
		return fmt.Errorf("engine.tp_min_pct must be between 0 and 1")
	}
	if c.Engine.TPMinStepPct <= 0 || c.Engine.TPMinStepPct >= 1 {
		return fmt.Errorf("engine.tp_min_step_pct must be between 0 and 1")
	}
	if c.Engine.NearPct <= 0 || c.Engine.NearPct >= 1 {
		return fmt.Errorf("engine.near_pct must be between 0 and 1")
	}
	if c.Engine.FeeRate < 0 || c.Engine.FeeRate >= 0.1 {
		return fmt.Errorf("engine.fee_rate must be between 0 and 0.1")
	}

	if c.Monitor.MinSignalScore < 0 || c.Monitor.MinSignalScore > 100 {
		return fmt.Errorf("monitor.min_signal_score must be between 0 and 100")
	}
	if c.Monitor.Cooldown < 0 {
		return fmt.Errorf("monitor.cooldown must not be negative")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.MaxDerivations < 1 {
		return fmt.Errorf("storage.max_derivations must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// StrategiaConfig maps the engine section onto the engine's own Config.
// Viper lower-cases map keys, so tick symbols are normalised back.
func (c *Config) StrategiaConfig() strategia.Config {
	ticks := make(map[string]float64, len(c.Engine.Ticks))
	for sym, tick := range c.Engine.Ticks {
		ticks[strategia.NormalizeSymbol(sym)] = tick
	}
	return strategia.Config{
		DefaultTick:    c.Engine.DefaultTick,
		Ticks:          ticks,
		EntryBufferPct: c.Engine.EntryBufferPct,
		StopTicks:      c.Engine.StopTicks,
		MinGapTicks:    c.Engine.MinGapTicks,
		TPMinPct:       c.Engine.TPMinPct,
		TPMinStepPct:   c.Engine.TPMinStepPct,
		NearPct:        c.Engine.NearPct,
		FeeRate:        c.Engine.FeeRate,
	}
}
