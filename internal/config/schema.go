package config

import "time"

// Config represents the full FraudShield configuration
type Config struct {
	Stream  StreamConfig  `yaml:"stream" mapstructure:"stream"`
	Alerts  AlertsConfig  `yaml:"alerts" mapstructure:"alerts"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
	Web     WebConfig     `yaml:"web" mapstructure:"web"`
}

// StreamConfig tunes the transaction pipeline
type StreamConfig struct {
	SettleDelay     time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	MinInterval     time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
	EmitProbability float64       `yaml:"emit_probability" mapstructure:"emit_probability"`
	HistoryCapacity int           `yaml:"history_capacity" mapstructure:"history_capacity"`

	// Seed for the random source; 0 seeds from the clock
	Seed           int64 `yaml:"seed" mapstructure:"seed"`
	StartConnected bool  `yaml:"start_connected" mapstructure:"start_connected"`
}

// AlertsConfig holds the initial alert preferences
type AlertsConfig struct {
	Sound               bool          `yaml:"sound" mapstructure:"sound"`
	Desktop             bool          `yaml:"desktop" mapstructure:"desktop"`
	NotificationTimeout time.Duration `yaml:"notification_timeout" mapstructure:"notification_timeout"`
}

// ArchiveConfig selects the alert audit sink. An empty type disables it.
type ArchiveConfig struct {
	Type      string        `yaml:"type" mapstructure:"type"`
	QueueSize int           `yaml:"queue_size" mapstructure:"queue_size"`
	Workers   int           `yaml:"workers" mapstructure:"workers"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Options is handed to the archive factory unchanged
	Options map[string]interface{} `yaml:"options" mapstructure:"options"`
}

// WebConfig configures the HTTP API
type WebConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}
