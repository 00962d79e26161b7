package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds engine configuration.
type Config struct {
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Log       LogConfig       `mapstructure:"log"`
}

// SchedulerConfig holds time slicing settings.
type SchedulerConfig struct {
	YieldIntervalMs int `mapstructure:"yield_interval_ms"`
}

func (c SchedulerConfig) YieldInterval() time.Duration {
	return time.Duration(c.YieldIntervalMs) * time.Millisecond
}

// LimitsConfig holds the loop guards.
type LimitsConfig struct {
	NestedUpdates        int `mapstructure:"nested_updates"`
	NestedPassiveUpdates int `mapstructure:"nested_passive_updates"`
	Rerenders            int `mapstructure:"rerenders"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{YieldIntervalMs: 5},
		Limits: LimitsConfig{
			NestedUpdates:        50,
			NestedPassiveUpdates: 50,
			Rerenders:            25,
		},
		Log: LogConfig{Level: "warning"},
	}
}

// Load reads configuration from file and env. Env var overrides use prefix RECONCILE_.
// When path is empty, RECONCILE_CONFIG is used, then ./reconcile.toml if present.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("scheduler.yield_interval_ms", def.Scheduler.YieldIntervalMs)
	v.SetDefault("limits.nested_updates", def.Limits.NestedUpdates)
	v.SetDefault("limits.nested_passive_updates", def.Limits.NestedPassiveUpdates)
	v.SetDefault("limits.rerenders", def.Limits.Rerenders)
	v.SetDefault("log.level", def.Log.Level)

	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv("RECONCILE_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("reconcile")
	}

	v.SetEnvPrefix("RECONCILE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Scheduler.YieldIntervalMs <= 0:
		return fmt.Errorf("scheduler.yield_interval_ms must be positive, got %d", c.Scheduler.YieldIntervalMs)
	case c.Limits.NestedUpdates <= 0:
		return fmt.Errorf("limits.nested_updates must be positive, got %d", c.Limits.NestedUpdates)
	case c.Limits.NestedPassiveUpdates <= 0:
		return fmt.Errorf("limits.nested_passive_updates must be positive, got %d", c.Limits.NestedPassiveUpdates)
	case c.Limits.Rerenders <= 0:
		return fmt.Errorf("limits.rerenders must be positive, got %d", c.Limits.Rerenders)
	}
	return nil
}
