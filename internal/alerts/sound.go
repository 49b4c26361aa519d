// Package alerts implements the side-effect ports the transaction stream
// fans out to: an audible alert, desktop notifications and toasts.
package alerts

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// Tone timing
const (
	ToneDuration = 150 * time.Millisecond
	ToneGap      = 100 * time.Millisecond
)

// TonePatterns lists the frequencies (Hz) played for each alert kind
var TonePatterns = map[transactions.AlertKind][]float64{
	transactions.AlertFraud:   {880, 660, 880},
	transactions.AlertWarning: {660, 520},
	transactions.AlertInfo:    {520},
}

// ToneBackend plays a single tone offset from the start of the pattern
type ToneBackend interface {
	PlayTone(frequency float64, duration, offset time.Duration) error
}

// Sound is the audio alert port
type Sound struct {
	enabled atomic.Bool
	backend ToneBackend
}

// NewSound creates an enabled sound port. A nil backend makes every call a no-op.
func NewSound(backend ToneBackend) *Sound {
	s := &Sound{backend: backend}
	s.enabled.Store(true)
	return s
}

// SetEnabled turns the audio alert on or off
func (s *Sound) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Enabled reports whether alerts are audible
func (s *Sound) Enabled() bool {
	return s.enabled.Load()
}

// PlayAlert plays the tone pattern for kind
func (s *Sound) PlayAlert(kind transactions.AlertKind) error {
	if !s.enabled.Load() || s.backend == nil {
		return nil
	}

	tones, ok := TonePatterns[kind]
	if !ok {
		return fmt.Errorf("no tone pattern for alert kind %q", kind)
	}

	for i, freq := range tones {
		offset := time.Duration(i) * (ToneDuration + ToneGap)
		if err := s.backend.PlayTone(freq, ToneDuration, offset); err != nil {
			return fmt.Errorf("play %s tone: %w", kind, err)
		}
	}
	return nil
}

// BellBackend renders tones as terminal bell characters
type BellBackend struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBellBackend writes bells to w
func NewBellBackend(w io.Writer) *BellBackend {
	return &BellBackend{w: w}
}

// PlayTone implements ToneBackend
func (b *BellBackend) PlayTone(frequency float64, duration, offset time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := io.WriteString(b.w, "\a")
	return err
}
