package immudb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codenotary/immudb/pkg/api/schema"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/models"
)

type execCall struct {
	sql    string
	params map[string]interface{}
}

// mockSQL implements SQLClient for testing
type mockSQL struct {
	mu      sync.Mutex
	execs   []execCall
	queries []execCall
	rows    []*schema.Row
	execErr error
	closed  bool
}

func (m *mockSQL) SQLExec(ctx context.Context, sql string, params map[string]interface{}) (*schema.SQLExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.execErr != nil {
		return nil, m.execErr
	}
	m.execs = append(m.execs, execCall{sql: sql, params: params})
	return &schema.SQLExecResult{}, nil
}

func (m *mockSQL) SQLQuery(ctx context.Context, sql string, params map[string]interface{}, renewSnapshot bool) (*schema.SQLQueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, execCall{sql: sql, params: params})
	return &schema.SQLQueryResult{Rows: m.rows}, nil
}

func (m *mockSQL) CloseSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func connectTo(m *mockSQL) Connector {
	return func(ctx context.Context) (SQLClient, error) {
		return m, nil
	}
}

func str(s string) *schema.SQLValue { return &schema.SQLValue{Value: &schema.SQLValue_S{S: s}} }
func num(n int64) *schema.SQLValue  { return &schema.SQLValue{Value: &schema.SQLValue_N{N: n}} }

func TestInitializeCreatesSchema(t *testing.T) {
	t.Parallel()

	m := &mockSQL{}
	a := NewArchive(connectTo(m), "fraud_alerts")

	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if len(m.execs) != 3 {
		t.Fatalf("Expected table and two indexes, got %d statements", len(m.execs))
	}
	if !strings.HasPrefix(m.execs[0].sql, "CREATE TABLE IF NOT EXISTS fraud_alerts") {
		t.Errorf("Unexpected schema statement %s", m.execs[0].sql)
	}

	if err := a.Close(); err != nil || !m.closed {
		t.Errorf("Expected session to be closed, err=%v", err)
	}
}

func TestInitializeFailures(t *testing.T) {
	t.Parallel()

	a := NewArchive(func(ctx context.Context) (SQLClient, error) {
		return nil, errors.New("connection refused")
	}, "fraud_alerts")
	if err := a.Initialize(context.Background()); err == nil {
		t.Error("Expected connect failure")
	}

	m := &mockSQL{execErr: errors.New("syntax error")}
	a = NewArchive(connectTo(m), "fraud_alerts")
	if err := a.Initialize(context.Background()); err == nil {
		t.Error("Expected schema failure")
	}
	if !m.closed {
		t.Error("Expected session to be closed after schema failure")
	}
}

func TestRecordAlert(t *testing.T) {
	t.Parallel()

	m := &mockSQL{}
	a := NewArchive(connectTo(m), "fraud_alerts")

	record := &models.AlertRecord{
		AlertID: "a-1", Kind: "fraud", TransactionID: "TXN-00002",
		Amount: "15000.00", Location: "Unknown", RiskScore: 94,
		OccurredAt: time.Unix(0, 1000), RecordedAt: time.Unix(0, 2000),
	}
	if err := a.RecordAlert(context.Background(), record); err == nil {
		t.Error("Expected an error before Initialize")
	}

	_ = a.Initialize(context.Background())
	if err := a.RecordAlert(context.Background(), record); err != nil {
		t.Fatalf("RecordAlert failed: %v", err)
	}

	insert := m.execs[len(m.execs)-1]
	if !strings.HasPrefix(insert.sql, "INSERT INTO fraud_alerts") {
		t.Errorf("Unexpected insert %s", insert.sql)
	}
	if insert.params["transaction_id"] != "TXN-00002" || insert.params["risk_score"] != int64(94) || insert.params["occurred_at"] != int64(1000) {
		t.Errorf("Unexpected params %+v", insert.params)
	}
	if got := a.GetMetrics()["writeOperations"]; got != 1 {
		t.Errorf("Expected 1 write, got %v", got)
	}
}

func TestRecentAlerts(t *testing.T) {
	t.Parallel()

	m := &mockSQL{rows: []*schema.Row{
		{Values: []*schema.SQLValue{
			str("a-1"), str("fraud"), str("TXN-00002"), str("s-1"), str("fraudulent"),
			str("15000.00"), str("Unknown"), num(94), num(1000), num(2000),
		}},
		{Values: []*schema.SQLValue{str("short")}},
	}}
	a := NewArchive(connectTo(m), "fraud_alerts")
	_ = a.Initialize(context.Background())

	records, err := a.RecentAlerts(context.Background(), &archive.QueryOptions{Kind: "fraud", Since: time.Unix(0, 500), Limit: 3})
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if len(records) != 1 || records[0].RiskScore != 94 || records[0].OccurredAt.UnixNano() != 1000 {
		t.Errorf("Unexpected records %+v", records)
	}
	q := m.queries[0]
	if q.params["kind"] != "fraud" || q.params["since"] != int64(500) || !strings.Contains(q.sql, "LIMIT 3") {
		t.Errorf("Unexpected query %+v", q)
	}
}
