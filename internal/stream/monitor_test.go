package stream

import (
	"bytes"
	"errors"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
	"github.com/shopspring/decimal"
)

func fastConfig() Config {
	return Config{
		SettleDelay: 10 * time.Millisecond,
		Scheduler: SchedulerConfig{
			MinInterval:     2 * time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			EmitProbability: 1,
		},
		HistoryCapacity: transactions.DefaultHistoryCapacity,
	}
}

func newTestMonitor(t *testing.T, cfg Config, opts ...Option) *Monitor {
	t.Helper()

	opts = append([]Option{
		WithLogger(log.New(&bytes.Buffer{}, "", 0)),
		WithSource(rand.NewSource(11)),
	}, opts...)
	m := New(cfg, opts...)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMonitorFraudScenario(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, DefaultConfig())

	var mu sync.Mutex
	var fraudIDs []string
	m.OnFraud(func(tx transactions.Transaction) error {
		mu.Lock()
		defer mu.Unlock()
		fraudIDs = append(fraudIDs, tx.ID)
		return nil
	})

	tx := transactions.Transaction{
		ID:        "TXN-77777",
		Amount:    decimal.NewFromInt(25000),
		Location:  "Unknown",
		RiskScore: 95,
		Status:    transactions.Classify(95),
	}
	if err := m.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}

	mu.Lock()
	if len(fraudIDs) != 1 || fraudIDs[0] != "TXN-77777" {
		t.Errorf("Expected fraud callback exactly once for TXN-77777, got %v", fraudIDs)
	}
	mu.Unlock()

	all := m.Transactions()
	if len(all) != 6 {
		t.Fatalf("Expected 6 transactions, got %d", len(all))
	}
	if all[0].ID != "TXN-77777" || !all[0].IsNew {
		t.Errorf("Expected new TXN-77777 at the head, got %+v", all[0])
	}
	for _, other := range all[1:] {
		if other.IsNew {
			t.Errorf("Seed transaction %s should not be new", other.ID)
		}
	}

	counters := m.Stats().Counters
	if counters[metrics.CounterFraud] != 1 {
		t.Errorf("Expected fraud counter 1, got %d", counters[metrics.CounterFraud])
	}
}

func TestMonitorSearch(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, DefaultConfig())

	if got := m.Search("nothing-matches"); len(got) != 0 {
		t.Errorf("Expected no matches, got %d", len(got))
	}
	got := m.Search("002")
	if len(got) != 1 || got[0].ID != "TXN-00002" {
		t.Errorf("Expected only TXN-00002, got %+v", got)
	}
	if len(m.Transactions()) != 5 {
		t.Error("Search must not modify the history")
	}
}

func TestMonitorConnectStreamsAndDisconnectStops(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	m := newTestMonitor(t, cfg)

	var dispatched atomic.Int32
	count := func(transactions.Transaction) error {
		dispatched.Add(1)
		return nil
	}
	m.OnFraud(count)
	m.OnWarning(count)

	var ingested atomic.Int32

	if err := m.Start(true); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := m.Status(); got != Connecting {
		t.Fatalf("Expected connecting right after Start, got %s", got)
	}
	if !waitFor(t, time.Second, func() bool { return m.Status() == Connected }) {
		t.Fatal("Expected connected after settle delay")
	}

	if !waitFor(t, 2*time.Second, func() bool {
		ingested.Store(int32(m.Stats().Counters[metrics.CounterGenerated]))
		return ingested.Load() >= 50
	}) {
		t.Fatalf("Expected stream to generate transactions, got %d", ingested.Load())
	}

	if err := m.SetConnected(false); err != nil {
		t.Fatalf("SetConnected failed: %v", err)
	}
	if got := m.Status(); got != Disconnected {
		t.Fatalf("Expected disconnected, got %s", got)
	}

	before := dispatched.Load()
	generated := m.Stats().Counters[metrics.CounterGenerated]
	time.Sleep(4 * cfg.Scheduler.MaxInterval)

	if dispatched.Load() != before {
		t.Errorf("Dispatcher invoked %d times after disconnect", dispatched.Load()-before)
	}
	if m.Stats().Counters[metrics.CounterGenerated] != generated {
		t.Error("Transactions generated after disconnect")
	}
	if len(m.Transactions()) != transactions.DefaultHistoryCapacity {
		t.Errorf("Expected history capped at %d, got %d", transactions.DefaultHistoryCapacity, len(m.Transactions()))
	}

	if err := m.SetConnected(false); err != nil {
		t.Errorf("Second disconnect failed: %v", err)
	}
}

func TestMonitorNoStreamBeforeSettle(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.SettleDelay = 200 * time.Millisecond
	m := newTestMonitor(t, cfg)

	_ = m.Start(true)
	time.Sleep(50 * time.Millisecond)

	if got := m.Stats().Counters[metrics.CounterGenerated]; got != 0 {
		t.Errorf("Expected no ticks while connecting, got %d", got)
	}

	_ = m.SetConnected(false)
	time.Sleep(250 * time.Millisecond)
	if m.Status() != Disconnected {
		t.Errorf("Expected settle to be canceled, got %s", m.Status())
	}
}

func TestMonitorStartDisconnected(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, fastConfig())
	var rec statusRecorder
	m.OnStatusChange(rec.record)

	_ = m.Start(false)
	if m.Status() != Disconnected {
		t.Errorf("Expected disconnected, got %s", m.Status())
	}
	if len(rec.all()) != 0 {
		t.Errorf("Expected no transitions, got %v", rec.all())
	}
}

func TestMonitorFailingSubscriberDoesNotStopStream(t *testing.T) {
	t.Parallel()

	gen := transactions.NewGenerator(rand.NewSource(2))
	fraudOnly := func() transactions.Transaction {
		tx := gen.Generate()
		tx.RiskScore = 90
		tx.Status = transactions.Fraudulent
		return tx
	}
	m := newTestMonitor(t, fastConfig(), WithGenerator(fraudOnly))

	m.OnFraud(func(transactions.Transaction) error { panic("boom") })

	_ = m.Start(true)
	ok := waitFor(t, 2*time.Second, func() bool {
		return m.Stats().Counters[metrics.CounterSubscriberFailures] >= 5
	})
	if !ok {
		t.Fatal("Expected the stream to keep running with a failing subscriber")
	}
}

func TestMonitorClose(t *testing.T) {
	t.Parallel()

	m := New(fastConfig(), WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	_ = m.Start(true)
	waitFor(t, time.Second, func() bool { return m.Status() == Connected })

	result := m.Close()
	if result == nil || result.SessionID != m.SessionID() {
		t.Fatalf("Expected session result for %s, got %+v", m.SessionID(), result)
	}
	if again := m.Close(); again != result {
		t.Error("Expected Close to be idempotent")
	}

	if m.Status() != Disconnected {
		t.Error("Expected closed monitor to report disconnected")
	}
	if err := m.SetConnected(true); err == nil {
		t.Error("Expected error when connecting a closed monitor")
	}
}

func TestMonitorKeepsHistoryAfterClose(t *testing.T) {
	t.Parallel()

	m := New(DefaultConfig(), WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	tx := transactions.Transaction{ID: "TXN-40404", Location: "Oslo", RiskScore: 10, Status: transactions.Legitimate}
	if err := m.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	m.Close()

	all := m.Transactions()
	if len(all) != 6 || all[0].ID != "TXN-40404" {
		t.Fatalf("Expected the final history after Close, got %d transactions", len(all))
	}
	if got := m.Search("oslo"); len(got) != 1 {
		t.Errorf("Expected search over the final history, got %+v", got)
	}
	if stats := m.Stats(); stats.Transactions != 6 || stats.Status != Disconnected {
		t.Errorf("Unexpected stats after Close: %+v", stats)
	}
}

func TestMonitorPanickingStatusListenerIsIsolated(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, fastConfig())
	rec := &statusRecorder{}
	m.OnStatusChange(func(s Status) {
		if s == Connected {
			panic("listener boom")
		}
	})
	m.OnStatusChange(rec.record)

	_ = m.Start(true)
	if !waitFor(t, time.Second, func() bool { return rec.last() == Connected }) {
		t.Fatal("Expected later listeners to see Connected")
	}
	ok := waitFor(t, 2*time.Second, func() bool {
		return m.Stats().Counters[metrics.CounterGenerated] >= 2
	})
	if !ok {
		t.Fatal("Expected the stream to keep running after a listener panic")
	}
	if m.Stats().Counters[metrics.CounterSubscriberFailures] < 1 {
		t.Error("Expected the listener panic to be counted")
	}
}

func TestMonitorHandlerCanCallBack(t *testing.T) {
	t.Parallel()

	gen := transactions.NewGenerator(rand.NewSource(5))
	fraudOnly := func() transactions.Transaction {
		tx := gen.Generate()
		tx.RiskScore = 90
		tx.Status = transactions.Fraudulent
		return tx
	}
	m := newTestMonitor(t, fastConfig(), WithGenerator(fraudOnly))

	var seen atomic.Int32
	m.OnFraud(func(tx transactions.Transaction) error {
		seen.Add(1)
		if len(m.Transactions()) == 0 {
			return errors.New("empty history inside handler")
		}
		return m.SetConnected(false)
	})

	_ = m.Start(true)
	if !waitFor(t, 2*time.Second, func() bool { return m.Status() == Disconnected && seen.Load() == 1 }) {
		t.Fatalf("Expected the handler to disconnect the stream, status %s after %d alerts", m.Status(), seen.Load())
	}

	time.Sleep(30 * time.Millisecond)
	if got := seen.Load(); got != 1 {
		t.Errorf("Expected no alerts after the handler disconnected, got %d", got)
	}
	if failures := m.Stats().Counters[metrics.CounterSubscriberFailures]; failures != 0 {
		t.Errorf("Expected no handler failures, got %d", failures)
	}
}
