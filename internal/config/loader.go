// Package config loads FraudShield settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
)

// EnvPrefix prefixes every environment override, e.g. FRAUDSHIELD_STREAM_SEED
const EnvPrefix = "FRAUDSHIELD"

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads path (when non-empty) over the defaults and applies environment
// overrides. A missing file is an error only when a path was given.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Archive.Options = canonicalOptions(cfg.Archive.Options)
	applyAWSEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("stream.settle_delay", cfg.Stream.SettleDelay)
	v.SetDefault("stream.min_interval", cfg.Stream.MinInterval)
	v.SetDefault("stream.max_interval", cfg.Stream.MaxInterval)
	v.SetDefault("stream.emit_probability", cfg.Stream.EmitProbability)
	v.SetDefault("stream.history_capacity", cfg.Stream.HistoryCapacity)
	v.SetDefault("stream.seed", cfg.Stream.Seed)
	v.SetDefault("stream.start_connected", cfg.Stream.StartConnected)

	v.SetDefault("alerts.sound", cfg.Alerts.Sound)
	v.SetDefault("alerts.desktop", cfg.Alerts.Desktop)
	v.SetDefault("alerts.notification_timeout", cfg.Alerts.NotificationTimeout)

	v.SetDefault("archive.type", cfg.Archive.Type)
	v.SetDefault("archive.queue_size", cfg.Archive.QueueSize)
	v.SetDefault("archive.workers", cfg.Archive.Workers)
	v.SetDefault("archive.timeout", cfg.Archive.Timeout)

	v.SetDefault("web.addr", cfg.Web.Addr)
}

// archiveOptionKeys are the option names the archive factories read.
// viper lowercases map keys, so they are restored here.
var archiveOptionKeys = []string{
	"region", "endpoint", "tableName", "databaseName", "createTable",
	"address", "port", "username", "password", "database",
	"provisionedRCUs", "provisionedWCUs",
}

func canonicalOptions(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for key, val := range in {
		for _, known := range archiveOptionKeys {
			if strings.EqualFold(key, known) {
				key = known
				break
			}
		}
		out[key] = val
	}
	return out
}

// applyAWSEnv maps the Lambda environment onto archive options that were not
// set explicitly
func applyAWSEnv(cfg *Config) {
	if cfg.Archive.Options == nil {
		cfg.Archive.Options = map[string]interface{}{}
	}
	for env, key := range map[string]string{
		"AWS_REGION":    "region",
		"DB_TABLE_NAME": "tableName",
		"DB_ENDPOINT":   "endpoint",
	} {
		if val := os.Getenv(env); val != "" {
			if _, set := cfg.Archive.Options[key]; !set {
				cfg.Archive.Options[key] = val
			}
		}
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	s := c.Stream
	switch {
	case s.SettleDelay <= 0:
		return fmt.Errorf("%w: stream.settle_delay must be positive", ErrInvalidConfig)
	case s.MinInterval <= 0:
		return fmt.Errorf("%w: stream.min_interval must be positive", ErrInvalidConfig)
	case s.MinInterval >= s.MaxInterval:
		return fmt.Errorf("%w: stream.min_interval (%s) must be below stream.max_interval (%s)",
			ErrInvalidConfig, s.MinInterval, s.MaxInterval)
	case s.EmitProbability < 0 || s.EmitProbability > 1:
		return fmt.Errorf("%w: stream.emit_probability %.2f outside [0,1]", ErrInvalidConfig, s.EmitProbability)
	case s.HistoryCapacity < 1:
		return fmt.Errorf("%w: stream.history_capacity must be at least 1", ErrInvalidConfig)
	case c.Alerts.NotificationTimeout <= 0:
		return fmt.Errorf("%w: alerts.notification_timeout must be positive", ErrInvalidConfig)
	}

	if c.Archive.Type != "" {
		if c.Archive.QueueSize < 1 || c.Archive.Workers < 1 {
			return fmt.Errorf("%w: archive.queue_size and archive.workers must be at least 1", ErrInvalidConfig)
		}
	}
	return nil
}

// ToStream converts the stream section into pipeline settings
func (c *Config) ToStream() stream.Config {
	return stream.Config{
		SettleDelay: c.Stream.SettleDelay,
		Scheduler: stream.SchedulerConfig{
			MinInterval:     c.Stream.MinInterval,
			MaxInterval:     c.Stream.MaxInterval,
			EmitProbability: c.Stream.EmitProbability,
		},
		HistoryCapacity: c.Stream.HistoryCapacity,
		Seed:            c.Stream.Seed,
	}
}
