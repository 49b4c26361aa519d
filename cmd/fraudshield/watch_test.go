package main

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/internal/app"
	"github.com/pedro-hbl/fraudshield-stream/internal/config"
	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
)

type silentTones struct{}

func (silentTones) PlayTone(frequency float64, duration, offset time.Duration) error { return nil }

func newTestWatcher(t *testing.T) (*watcher, *bytes.Buffer) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Stream.StartConnected = false
	cfg.Stream.SettleDelay = 5 * time.Millisecond

	var out bytes.Buffer
	a, err := app.New(context.Background(), cfg,
		app.WithLogger(log.New(&bytes.Buffer{}, "", 0)),
		app.WithOutput(&out),
		app.WithToneBackend(silentTones{}),
	)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return newWatcher(a, &out), &out
}

func TestWatcherCommands(t *testing.T) {
	w, out := newTestWatcher(t)
	ctx := context.Background()

	tests := []struct {
		line  string
		quit  bool
		wants []string
	}{
		{line: "m", wants: []string{"Sound muted"}},
		{line: "m", wants: []string{"Sound on"}},
		{line: "f", wants: []string{"Dashboard in background"}},
		{line: "d", wants: []string{"Desktop notifications on"}},
		{line: "d", wants: []string{"Desktop notifications off"}},
		{line: "/nigeria", wants: []string{`search="nigeria"`, "TXN-00002", "1 SHOWN"}},
		{line: "/", wants: []string{"5 SHOWN"}},
		{line: "help", wants: []string{"Commands:"}},
		{line: "q", quit: true},
	}

	for _, tt := range tests {
		out.Reset()
		if quit := w.handle(ctx, tt.line); quit != tt.quit {
			t.Errorf("handle(%q) quit = %v, want %v", tt.line, quit, tt.quit)
		}
		for _, want := range tt.wants {
			if !strings.Contains(out.String(), want) {
				t.Errorf("handle(%q) output missing %q:\n%s", tt.line, want, out.String())
			}
		}
	}
}

func TestWatcherPauseResume(t *testing.T) {
	w, _ := newTestWatcher(t)
	ctx := context.Background()

	if got := w.app.Monitor.Status(); got != stream.Disconnected {
		t.Fatalf("status = %v, want disconnected", got)
	}

	w.handle(ctx, "p")
	if got := w.app.Monitor.Status(); got == stream.Disconnected {
		t.Fatal("expected p to start connecting")
	}

	w.handle(ctx, "p")
	if got := w.app.Monitor.Status(); got != stream.Disconnected {
		t.Errorf("status = %v, want disconnected after second p", got)
	}
}

func TestWatcherRunQuitsOnCommand(t *testing.T) {
	w, out := newTestWatcher(t)

	done := make(chan struct{})
	go func() {
		w.run(context.Background(), strings.NewReader("m\nq\n"), time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after q")
	}
	if !strings.Contains(out.String(), "Sound muted") {
		t.Errorf("expected the mute command to run:\n%s", out.String())
	}
}

func TestWatcherRedrawsOnRepeatedID(t *testing.T) {
	w, out := newTestWatcher(t)

	w.draw()
	if w.ingested() != w.drawnAt {
		t.Fatal("expected a fresh draw to be current")
	}

	head := w.app.Monitor.Transactions()[0]
	head.IsNew = false
	if err := w.app.Monitor.AddTransaction(head); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if w.ingested() == w.drawnAt {
		t.Fatal("expected a transaction with a repeated id to need a redraw")
	}

	out.Reset()
	w.draw()
	if !strings.Contains(out.String(), "6 SHOWN") {
		t.Errorf("expected the redraw to include the repeated id:\n%s", out.String())
	}
}
