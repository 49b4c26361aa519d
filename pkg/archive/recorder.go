package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/internal/stream"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/models"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// Recorder defaults
const (
	DefaultQueueSize = 256
	DefaultWorkers   = 2
	DefaultTimeout   = 5 * time.Second
)

var (
	// ErrQueueFull is returned when an alert is dropped because the queue is full
	ErrQueueFull = errors.New("archive queue full")
	// ErrRecorderClosed is returned after Close
	ErrRecorderClosed = errors.New("archive recorder closed")
)

// RecorderConfig sizes the write queue
type RecorderConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// RecorderStats counts what happened to enqueued alerts
type RecorderStats struct {
	Written int64 `json:"written"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Registrar accepts fraud and warning handlers
type Registrar interface {
	OnFraud(h stream.Handler) *stream.Subscription
	OnWarning(h stream.Handler) *stream.Subscription
}

// Recorder writes alerts to an Archive from worker goroutines so dispatch
// never waits on the backend. When the queue is full new alerts are dropped.
type Recorder struct {
	archive   Archive
	cfg       RecorderConfig
	sessionID string
	collector *metrics.Collector
	logger    *log.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *models.AlertRecord
	wg     sync.WaitGroup
	once   sync.Once

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithSessionID tags every record with the stream session
func WithSessionID(id string) RecorderOption {
	return func(r *Recorder) {
		r.sessionID = id
	}
}

// WithRecorderCollector times writes and counts drops in c
func WithRecorderCollector(c *metrics.Collector) RecorderOption {
	return func(r *Recorder) {
		r.collector = c
	}
}

// WithRecorderLogger sets the logger for write failures
func WithRecorderLogger(logger *log.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder starts the workers writing to a
func NewRecorder(a Archive, cfg RecorderConfig, opts ...RecorderOption) *Recorder {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := &Recorder{
		archive: a,
		cfg:     cfg,
		logger:  log.Default(),
		queue:   make(chan *models.AlertRecord, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Enqueue schedules a record for writing without blocking
func (r *Recorder) Enqueue(record *models.AlertRecord) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRecorderClosed
	}

	select {
	case r.queue <- record:
		return nil
	default:
		r.dropped.Add(1)
		if r.collector != nil {
			r.collector.Increment(metrics.CounterArchiveDropped, 1)
		}
		return fmt.Errorf("drop alert %s for %s: %w", record.Kind, record.TransactionID, ErrQueueFull)
	}
}

// Handler returns a stream handler archiving alerts of kind
func (r *Recorder) Handler(kind transactions.AlertKind) stream.Handler {
	return func(tx transactions.Transaction) error {
		return r.Enqueue(models.NewAlertRecord(r.sessionID, transactions.NewAlert(kind, tx), tx.Status))
	}
}

// Attach archives every fraud and warning alert raised by reg
func (r *Recorder) Attach(reg Registrar) []*stream.Subscription {
	return []*stream.Subscription{
		reg.OnFraud(r.Handler(transactions.AlertFraud)),
		reg.OnWarning(r.Handler(transactions.AlertWarning)),
	}
}

// Stats returns the write counters
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Written: r.written.Load(),
		Failed:  r.failed.Load(),
		Dropped: r.dropped.Load(),
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for record := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		write := func() error {
			return r.archive.RecordAlert(ctx, record)
		}

		var err error
		if r.collector != nil {
			err = r.collector.MeasureOperation(metrics.ArchiveOperation, 1, write)
		} else {
			err = write()
		}
		cancel()

		if err != nil {
			r.failed.Add(1)
			r.logger.Printf("Failed to archive %s alert for %s: %v", record.Kind, record.TransactionID, err)
			continue
		}
		r.written.Add(1)
	}
}

// Close stops accepting alerts, drains the queue and closes the archive
func (r *Recorder) Close() error {
	var err error
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()

		r.wg.Wait()
		err = r.archive.Close()
	})
	return err
}
