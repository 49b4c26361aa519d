package stream

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// Config holds the pipeline tuning parameters
type Config struct {
	SettleDelay     time.Duration
	Scheduler       SchedulerConfig
	HistoryCapacity int
	Seed            int64 // 0 seeds from the clock
}

// DefaultConfig returns the production timings
func DefaultConfig() Config {
	return Config{
		SettleDelay: DefaultSettleDelay,
		Scheduler: SchedulerConfig{
			MinInterval:     DefaultMinInterval,
			MaxInterval:     DefaultMaxInterval,
			EmitProbability: DefaultEmitProbability,
		},
		HistoryCapacity: transactions.DefaultHistoryCapacity,
	}
}

// Option configures a Monitor
type Option func(*Monitor)

// WithLogger sets the logger used for subscriber failures and lifecycle events
func WithLogger(logger *log.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// WithCollector records session metrics into an existing collector
func WithCollector(c *metrics.Collector) Option {
	return func(m *Monitor) {
		m.collector = c
	}
}

// WithSource overrides the random source shared by the generator and the scheduler
func WithSource(src rand.Source) Option {
	return func(m *Monitor) {
		m.src = src
	}
}

// WithSeedTransactions replaces the static initial transactions
func WithSeedTransactions(txs []transactions.Transaction) Option {
	return func(m *Monitor) {
		m.seed = txs
	}
}

// WithGenerator replaces the event generator
func WithGenerator(generate func() transactions.Transaction) Option {
	return func(m *Monitor) {
		m.generate = generate
	}
}

// Stats is a point-in-time view of the pipeline
type Stats struct {
	SessionID    string           `json:"sessionId"`
	Status       Status           `json:"status"`
	Transactions int              `json:"transactions"`
	Counters     map[string]int64 `json:"counters"`
}

// Monitor is the transaction pipeline. Its methods are safe for concurrent
// use. Fraud and warning handlers run on the monitor's loop; calls they make
// back into the Monitor run inline.
type Monitor struct {
	loop       *Loop
	conn       *Connection
	sched      *Scheduler
	history    *transactions.History
	dispatcher *Dispatcher
	collector  *metrics.Collector
	logger     *log.Logger
	src        rand.Source
	seed       []transactions.Transaction
	generate   func() transactions.Transaction
	sessionID  string

	// set once the loop has stopped; the history is then read directly
	stopped atomic.Bool

	listenersMu sync.RWMutex
	listeners   []func(Status)

	closeOnce sync.Once
}

// New builds a monitor. It starts disconnected; call Start to apply the
// initial intent.
func New(cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		logger:    log.Default(),
		seed:      transactions.InitialTransactions(),
		sessionID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.src == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		m.src = rand.NewSource(seed)
	}
	if m.generate == nil {
		m.generate = transactions.NewGenerator(m.src).Generate
	}
	if m.collector == nil {
		m.collector = metrics.NewCollector()
	}
	m.collector.StartSession(m.sessionID, "transaction stream session", map[string]interface{}{
		"settleDelay":     cfg.SettleDelay.String(),
		"minInterval":     cfg.Scheduler.MinInterval.String(),
		"maxInterval":     cfg.Scheduler.MaxInterval.String(),
		"emitProbability": cfg.Scheduler.EmitProbability,
		"historyCapacity": cfg.HistoryCapacity,
	})

	m.loop = NewLoop()
	m.history = transactions.NewHistory(cfg.HistoryCapacity, m.seed...)
	m.dispatcher = NewDispatcher(m.logger)
	m.conn = NewConnection(m.loop, cfg.SettleDelay, m.statusChanged)
	m.sched = NewScheduler(m.loop, cfg.Scheduler, m.src, m.generate, m.ingest)
	m.sched.OnTick(m.recordTick)

	return m
}

// SessionID identifies the metrics session of this monitor
func (m *Monitor) SessionID() string {
	return m.sessionID
}

// Start applies the initial connect intent
func (m *Monitor) Start(connected bool) error {
	return m.SetConnected(connected)
}

// SetConnected applies the connect intent. Turning it off stops the stream
// before SetConnected returns.
func (m *Monitor) SetConnected(connected bool) error {
	if err := m.loop.Do(func() { m.conn.SetIntent(connected) }); err != nil {
		return fmt.Errorf("set connected: %w", err)
	}
	return nil
}

// Status returns the connection status; a closed monitor is disconnected
func (m *Monitor) Status() Status {
	status := Disconnected
	_ = m.loop.Do(func() { status = m.conn.Status() })
	return status
}

// Transactions returns the history, most recent first
func (m *Monitor) Transactions() []transactions.Transaction {
	var out []transactions.Transaction
	m.read(func() { out = m.history.All() })
	return out
}

// Search returns the history entries whose id or location contains term
func (m *Monitor) Search(term string) []transactions.Transaction {
	var out []transactions.Transaction
	m.read(func() { out = m.history.Filter(term) })
	return out
}

// AddTransaction inserts tx and dispatches it as if the stream produced it
func (m *Monitor) AddTransaction(tx transactions.Transaction) error {
	if err := m.loop.Do(func() { m.ingest(tx) }); err != nil {
		return fmt.Errorf("add transaction %s: %w", tx.ID, err)
	}
	return nil
}

// OnFraud registers a handler for fraudulent transactions
func (m *Monitor) OnFraud(h Handler) *Subscription {
	return m.dispatcher.OnFraud(h)
}

// OnWarning registers a handler for pending transactions
func (m *Monitor) OnWarning(h Handler) *Subscription {
	return m.dispatcher.OnWarning(h)
}

// OnStatusChange registers fn to be called on every connection transition,
// on the loop goroutine
func (m *Monitor) OnStatusChange(fn func(Status)) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	m.listeners = append(m.listeners, fn)
}

// Stats returns a snapshot of the pipeline
func (m *Monitor) Stats() Stats {
	stats := Stats{SessionID: m.sessionID, Status: Disconnected}
	err := m.loop.Do(func() {
		stats.Status = m.conn.Status()
		stats.Transactions = m.history.Len()
	})
	if err != nil && m.stopped.Load() {
		stats.Transactions = m.history.Len()
	}
	stats.Counters = m.collector.Counters()
	return stats
}

// Collector returns the metrics collector
func (m *Monitor) Collector() *metrics.Collector {
	return m.collector
}

// Close stops the stream, releases every timer and ends the metrics session.
// It is idempotent.
func (m *Monitor) Close() *metrics.SessionResult {
	var result *metrics.SessionResult
	m.closeOnce.Do(func() {
		_ = m.loop.Do(func() {
			m.sched.Stop()
			m.conn.Close()
		})
		m.loop.Close()
		m.stopped.Store(true)
		result = m.collector.EndSession(m.sessionID)
	})
	if result == nil {
		result = m.collector.GetSessionResult(m.sessionID)
	}
	return result
}

func (m *Monitor) statusChanged(status Status) {
	if status == Connected {
		m.sched.Start()
	} else {
		m.sched.Stop()
	}
	m.logger.Printf("Stream %s", status)

	m.listenersMu.RLock()
	listeners := append([]func(Status){}, m.listeners...)
	m.listenersMu.RUnlock()

	for _, fn := range listeners {
		m.notifyListener(fn, status)
	}
}

// read runs fn on the loop, or directly once the loop has stopped so a
// closed monitor still reports its final history
func (m *Monitor) read(fn func()) {
	if err := m.loop.Do(fn); err != nil && m.stopped.Load() {
		fn()
	}
}

func (m *Monitor) notifyListener(fn func(Status), status Status) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Printf("Status listener panic on %s: %v", status, r)
			m.collector.Increment(metrics.CounterSubscriberFailures, 1)
		}
	}()
	fn(status)
}

func (m *Monitor) ingest(tx transactions.Transaction) {
	m.history.Insert(tx)

	var report DispatchReport
	_ = m.collector.MeasureOperation(metrics.DispatchOperation, 1, func() error {
		report = m.dispatcher.Dispatch(tx)
		return nil
	})

	switch tx.Status {
	case transactions.Fraudulent:
		m.collector.Increment(metrics.CounterFraud, 1)
	case transactions.Pending:
		m.collector.Increment(metrics.CounterPending, 1)
	default:
		m.collector.Increment(metrics.CounterLegitimate, 1)
	}
	if report.Failed > 0 {
		m.collector.Increment(metrics.CounterSubscriberFailures, int64(report.Failed))
	}
}

func (m *Monitor) recordTick(result TickResult) {
	m.collector.RecordOperation(metrics.TickOperation, 1, result.Duration)
	if result.Emitted {
		m.collector.Increment(metrics.CounterGenerated, 1)
	} else {
		m.collector.Increment(metrics.CounterSkipped, 1)
	}
}
