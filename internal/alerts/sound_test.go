package alerts

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

func TestSoundPlaysPattern(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{}
	s := NewSound(backend)

	if err := s.PlayAlert(transactions.AlertFraud); err != nil {
		t.Fatalf("PlayAlert failed: %v", err)
	}

	tones := backend.played()
	want := []float64{880, 660, 880}
	if len(tones) != len(want) {
		t.Fatalf("Expected %d tones, got %d", len(want), len(tones))
	}
	for i, tn := range tones {
		if tn.frequency != want[i] {
			t.Errorf("Tone %d: expected %.0f Hz, got %.0f Hz", i, want[i], tn.frequency)
		}
		if tn.offset != time.Duration(i)*(ToneDuration+ToneGap) {
			t.Errorf("Tone %d: unexpected offset %s", i, tn.offset)
		}
	}
}

func TestSoundDisabledAndNoBackend(t *testing.T) {
	t.Parallel()

	backend := &mockBackend{}
	s := NewSound(backend)
	s.SetEnabled(false)

	for i := 0; i < 10; i++ {
		_ = s.PlayAlert(transactions.AlertFraud)
	}
	if len(backend.played()) != 0 {
		t.Error("Disabled sound reached the backend")
	}

	if err := NewSound(nil).PlayAlert(transactions.AlertWarning); err != nil {
		t.Errorf("Expected no-op without backend, got %v", err)
	}
}

func TestSoundErrors(t *testing.T) {
	t.Parallel()

	s := NewSound(&mockBackend{Fail: true})
	if err := s.PlayAlert(transactions.AlertInfo); !errors.Is(err, errMockBackend) {
		t.Errorf("Expected backend error, got %v", err)
	}
	if err := NewSound(&mockBackend{}).PlayAlert("siren"); err == nil {
		t.Error("Expected error for unknown alert kind")
	}
}

func TestBellBackend(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSound(NewBellBackend(&buf))
	_ = s.PlayAlert(transactions.AlertWarning)

	if buf.String() != "\a\a" {
		t.Errorf("Expected two bells, got %q", buf.String())
	}
}
