package stream

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

func txWithScore(id string, score int) transactions.Transaction {
	return transactions.Transaction{ID: id, RiskScore: score, Status: transactions.Classify(score)}
}

func TestDispatcherRoutesByStatus(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(log.New(&bytes.Buffer{}, "", 0))

	var fraud, warning []string
	d.OnFraud(func(tx transactions.Transaction) error {
		fraud = append(fraud, tx.ID)
		return nil
	})
	d.OnWarning(func(tx transactions.Transaction) error {
		warning = append(warning, tx.ID)
		return nil
	})

	d.Dispatch(txWithScore("TXN-00001", 95))
	d.Dispatch(txWithScore("TXN-00002", 60))
	report := d.Dispatch(txWithScore("TXN-00003", 10))

	if len(fraud) != 1 || fraud[0] != "TXN-00001" {
		t.Errorf("Expected fraud handler once for TXN-00001, got %v", fraud)
	}
	if len(warning) != 1 || warning[0] != "TXN-00002" {
		t.Errorf("Expected warning handler once for TXN-00002, got %v", warning)
	}
	if report.Delivered != 0 || report.Failed != 0 {
		t.Errorf("Expected no delivery for legitimate transaction, got %+v", report)
	}
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	d := NewDispatcher(log.New(&logs, "", 0))

	var reached int
	d.OnFraud(func(transactions.Transaction) error { return errors.New("speaker unplugged") })
	d.OnFraud(func(transactions.Transaction) error { panic("notification backend crashed") })
	d.OnFraud(nil)
	d.OnFraud(func(transactions.Transaction) error {
		reached++
		return nil
	})

	report := d.Dispatch(txWithScore("TXN-12345", 90))

	if reached != 1 {
		t.Errorf("Expected the healthy handler to run once, ran %d times", reached)
	}
	if report.Failed != 2 || report.Delivered != 2 {
		t.Errorf("Expected 2 failed and 2 delivered, got %+v", report)
	}
	if !strings.Contains(logs.String(), "TXN-12345") {
		t.Errorf("Expected failure log to mention the transaction, got %q", logs.String())
	}
}

func TestDispatcherUnsubscribe(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil)

	var first, second int
	sub := d.OnWarning(func(transactions.Transaction) error {
		first++
		return nil
	})
	d.OnWarning(func(transactions.Transaction) error {
		second++
		return nil
	})

	d.Dispatch(txWithScore("TXN-00001", 70))
	sub.Unsubscribe()
	sub.Unsubscribe()
	d.Dispatch(txWithScore("TXN-00002", 70))

	if first != 1 || second != 2 {
		t.Errorf("Expected first=1 second=2, got first=%d second=%d", first, second)
	}

	var nilSub *Subscription
	nilSub.Unsubscribe()
}

func TestDispatcherResolvesAtDispatchTime(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(nil)
	tx := txWithScore("TXN-00009", 99)

	d.Dispatch(tx)

	var calls int
	d.OnFraud(func(transactions.Transaction) error {
		calls++
		return nil
	})
	d.Dispatch(tx)

	if calls != 1 {
		t.Errorf("Expected a late subscriber to see only later dispatches, got %d calls", calls)
	}
}
