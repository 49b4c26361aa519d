// Package app assembles a runnable FraudShield session from configuration:
// the stream monitor, the alert ports and the optional alert archive.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/internal/alerts"
	"github.com/pedro-hbl/fraudshield-stream/internal/config"
	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/internal/render"
	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/sinks"
)

// App is one assembled session
type App struct {
	Config      *config.Config
	Monitor     *stream.Monitor
	Sound       *alerts.Sound
	Desktop     *alerts.Desktop
	Preferences *alerts.Preferences
	Recorder    *archive.Recorder // nil when archiving is off

	logger     *log.Logger
	out        io.Writer
	registry   *archive.Registry
	archive    archive.Archive
	capability alerts.Capability
	tones      alerts.ToneBackend
	streamOpts []stream.Option
}

// Result is what a closed session leaves behind
type Result struct {
	Session *metrics.SessionResult
	Archive *archive.RecorderStats
}

// Option configures an App
type Option func(*App)

// WithLogger sets the logger shared by every component
func WithLogger(logger *log.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithOutput sets where console notifications and bells are written
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.out = w
	}
}

// WithRegistry replaces the archive backends available by type name
func WithRegistry(r *archive.Registry) Option {
	return func(a *App) {
		a.registry = r
	}
}

// WithArchive uses an already created archive instead of the configured type
func WithArchive(ar archive.Archive) Option {
	return func(a *App) {
		a.archive = ar
	}
}

// WithCapability sets the desktop notification facility
func WithCapability(c alerts.Capability) Option {
	return func(a *App) {
		a.capability = c
	}
}

// WithToneBackend sets the audio backend
func WithToneBackend(b alerts.ToneBackend) Option {
	return func(a *App) {
		a.tones = b
	}
}

// WithStreamOptions passes extra options to the monitor
func WithStreamOptions(opts ...stream.Option) Option {
	return func(a *App) {
		a.streamOpts = append(a.streamOpts, opts...)
	}
}

// New assembles a session. The stream does not run until Start.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		logger: log.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = sinks.NewRegistry()
	}
	if a.capability == nil {
		a.capability = alerts.NewConsoleCapability(a.out, false)
	}
	if a.tones == nil {
		a.tones = alerts.NewBellBackend(a.out)
	}

	collector := metrics.NewCollector()
	streamOpts := append([]stream.Option{
		stream.WithLogger(a.logger),
		stream.WithCollector(collector),
	}, a.streamOpts...)
	a.Monitor = stream.New(cfg.ToStream(), streamOpts...)

	a.Sound = alerts.NewSound(a.tones)
	a.Sound.SetEnabled(cfg.Alerts.Sound)
	a.Desktop = alerts.NewDesktop(a.capability,
		alerts.WithNotificationTimeout(cfg.Alerts.NotificationTimeout),
		alerts.WithDesktopLogger(a.logger))
	toaster := alerts.NewLogToaster(a.logger)
	a.Preferences = alerts.NewPreferences(a.Sound, a.Desktop, toaster)

	if cfg.Alerts.Desktop {
		a.Preferences.Sync()
		if !a.Desktop.Enabled() {
			if _, err := a.Preferences.ToggleDesktop(ctx); err != nil {
				a.logger.Printf("Desktop notifications unavailable, using toasts only: %v", err)
			}
		}
	}

	alerts.NewRouter(a.Sound, a.Desktop, toaster).Attach(a.Monitor)

	if err := a.openArchive(ctx, collector); err != nil {
		a.Monitor.Close()
		a.Desktop.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openArchive(ctx context.Context, collector *metrics.Collector) error {
	ar := a.archive
	if ar == nil {
		if a.Config.Archive.Type == "" {
			return nil
		}
		var err error
		ar, err = a.registry.Create(a.Config.Archive.Type, a.Config.Archive.Options)
		if err != nil {
			return err
		}
	}

	if err := ar.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}

	a.Recorder = archive.NewRecorder(ar, archive.RecorderConfig{
		QueueSize: a.Config.Archive.QueueSize,
		Workers:   a.Config.Archive.Workers,
		Timeout:   a.Config.Archive.Timeout,
	},
		archive.WithSessionID(a.Monitor.SessionID()),
		archive.WithRecorderCollector(collector),
		archive.WithRecorderLogger(a.logger),
	)
	a.Recorder.Attach(a.Monitor)
	return nil
}

// Start applies the configured connect intent
func (a *App) Start() error {
	return a.Monitor.Start(a.Config.Stream.StartConnected)
}

// RunFor starts the stream and keeps it running for d or until ctx is done
func (a *App) RunFor(ctx context.Context, d time.Duration) error {
	if err := a.Start(); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	return nil
}

// Close stops the stream, drains the archive and ends the metrics session
func (a *App) Close() *Result {
	res := &Result{}

	// stop dispatching before the recorder drains
	_ = a.Monitor.SetConnected(false)
	if a.Recorder != nil {
		if err := a.Recorder.Close(); err != nil {
			a.logger.Printf("Failed to close archive: %v", err)
		}
		stats := a.Recorder.Stats()
		res.Archive = &stats
	}

	res.Session = a.Monitor.Close()
	a.Desktop.Close()
	return res
}

// SessionFile captures the finished session for `fraudshield report`
func (a *App) SessionFile(res *Result) *render.SessionFile {
	file := &render.SessionFile{
		Session:      res.Session,
		Transactions: a.Monitor.Transactions(),
	}
	if res.Archive != nil {
		file.Archive = map[string]int64{
			"written": res.Archive.Written,
			"failed":  res.Archive.Failed,
			"dropped": res.Archive.Dropped,
		}
	}
	return file
}
