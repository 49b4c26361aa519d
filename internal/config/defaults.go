package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Stream: StreamConfig{
			SettleDelay:     stream.DefaultSettleDelay,
			MinInterval:     stream.DefaultMinInterval,
			MaxInterval:     stream.DefaultMaxInterval,
			EmitProbability: stream.DefaultEmitProbability,
			HistoryCapacity: transactions.DefaultHistoryCapacity,
			StartConnected:  true,
		},
		Alerts: AlertsConfig{
			Sound:               true,
			NotificationTimeout: 10 * time.Second,
		},
		Archive: ArchiveConfig{
			QueueSize: 256,
			Workers:   2,
			Timeout:   5 * time.Second,
			Options:   map[string]interface{}{},
		},
		Web: WebConfig{
			Addr: ":8080",
		},
	}
}

// WriteDefault writes a commented default configuration to a file
func WriteDefault(path string) error {
	content := `# FraudShield configuration

stream:
  settle_delay: 1s
  min_interval: 2s
  max_interval: 5s
  emit_probability: 0.7
  history_capacity: 50
  seed: 0            # 0 seeds from the clock
  start_connected: true

alerts:
  sound: true
  desktop: false
  notification_timeout: 10s

# Alert audit trail; type is one of dynamodb, timestream, immudb or empty
archive:
  type: ""
  queue_size: 256
  workers: 2
  timeout: 5s
  # options:
  #   tableName: FraudAlerts
  #   region: us-east-1
  #   endpoint: http://localhost:8000

web:
  addr: ":8080"
`
	return os.WriteFile(path, []byte(content), 0644)
}

// Save writes c as YAML, e.g. to capture the effective configuration after
// environment overrides
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
