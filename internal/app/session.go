package app

import (
	"strings"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/internal/config"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
)

// SessionRequest represents a bounded, headless stream session
type SessionRequest struct {
	DurationMs      int64                  `json:"durationMs"`
	Seed            int64                  `json:"seed,omitempty"`
	ArchiveType     string                 `json:"archiveType,omitempty"` // dynamodb, immudb, timestream
	MinIntervalMs   int64                  `json:"minIntervalMs,omitempty"`
	MaxIntervalMs   int64                  `json:"maxIntervalMs,omitempty"`
	EmitProbability *float64               `json:"emitProbability,omitempty"`
	Parameters      map[string]interface{} `json:"parameters,omitempty"`
}

// SessionResponse represents the outcome of a headless session
type SessionResponse struct {
	SessionID    string                 `json:"sessionId,omitempty"`
	ArchiveType  string                 `json:"archiveType,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"errorMessage,omitempty"`
	DurationNs   int64                  `json:"durationNs"`
	Transactions int                    `json:"transactions"`
	Counters     map[string]int64       `json:"counters,omitempty"`
	Archive      *archive.RecorderStats `json:"archive,omitempty"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	IsColdStart  bool                   `json:"isColdStart"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Config layers the request over base. Parameters prefixed with "db." become
// archive options. Alerts are turned off since nobody is watching.
func (r SessionRequest) Config(base *config.Config) (*config.Config, error) {
	cfg := *base
	cfg.Archive.Options = make(map[string]interface{}, len(base.Archive.Options))
	for k, v := range base.Archive.Options {
		cfg.Archive.Options[k] = v
	}

	cfg.Alerts.Sound = false
	cfg.Alerts.Desktop = false
	cfg.Stream.StartConnected = true

	if r.Seed != 0 {
		cfg.Stream.Seed = r.Seed
	}
	if r.MinIntervalMs > 0 {
		cfg.Stream.MinInterval = time.Duration(r.MinIntervalMs) * time.Millisecond
	}
	if r.MaxIntervalMs > 0 {
		cfg.Stream.MaxInterval = time.Duration(r.MaxIntervalMs) * time.Millisecond
	}
	if r.EmitProbability != nil {
		cfg.Stream.EmitProbability = *r.EmitProbability
	}

	if r.ArchiveType != "" {
		cfg.Archive.Type = strings.ToLower(r.ArchiveType)
	}
	for k, v := range r.Parameters {
		if strings.HasPrefix(k, "db.") {
			cfg.Archive.Options[strings.TrimPrefix(k, "db.")] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
