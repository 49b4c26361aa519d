package immudb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/codenotary/immudb/pkg/api/schema"
	"github.com/codenotary/immudb/pkg/client"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/models"
)

// SQLClient is the subset of client.ImmuClient the archive uses
type SQLClient interface {
	SQLExec(ctx context.Context, sql string, params map[string]interface{}) (*schema.SQLExecResult, error)
	SQLQuery(ctx context.Context, sql string, params map[string]interface{}, renewSnapshot bool) (*schema.SQLQueryResult, error)
	CloseSession(ctx context.Context) error
}

// Connector opens a session and returns the client bound to it
type Connector func(ctx context.Context) (SQLClient, error)

// Archive keeps alerts in an immudb table, giving a tamper-evident ledger
type Archive struct {
	connect   Connector
	tableName string

	mu        sync.Mutex
	client    SQLClient
	connected bool
	metrics   map[string]interface{}
}

// Factory creates immudb archives
type Factory struct{}

// NewFactory creates a new factory for immudb
func NewFactory() *Factory {
	return &Factory{}
}

// CreateArchive implements the archive.Factory interface
func (f *Factory) CreateArchive(config map[string]interface{}) (archive.Archive, error) {
	address := archive.GetParam(config, "address", "127.0.0.1")
	port := archive.GetInt(config, "port", 3322)
	username := archive.GetParam(config, "username", "immudb")
	password := archive.GetParam(config, "password", "immudb")
	database := archive.GetParam(config, "database", "defaultdb")
	tableName := archive.GetParam(config, "tableName", "fraud_alerts")

	options := client.DefaultOptions().
		WithAddress(address).
		WithPort(port).
		WithUsername(username).
		WithPassword(password).
		WithDatabase(database)

	connect := func(ctx context.Context) (SQLClient, error) {
		c := client.NewClient().WithOptions(options)
		err := c.OpenSession(ctx, []byte(options.Username), []byte(options.Password), options.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to immudb: %w", err)
		}
		return c, nil
	}

	return NewArchive(connect, tableName), nil
}

// NewArchive creates an archive that opens its session with connect
func NewArchive(connect Connector, tableName string) *Archive {
	a := &Archive{
		connect:   connect,
		tableName: tableName,
	}
	a.ResetMetrics()
	return a
}

// Initialize opens the session and ensures the alert table exists
func (a *Archive) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return nil
	}

	c, err := a.connect(ctx)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
		"alert_id VARCHAR[36] NOT NULL, "+
		"kind VARCHAR[16] NOT NULL, "+
		"transaction_id VARCHAR[32] NOT NULL, "+
		"session_id VARCHAR[36], "+
		"status VARCHAR[16], "+
		"amount VARCHAR[32] NOT NULL, "+
		"location VARCHAR[64], "+
		"risk_score INTEGER NOT NULL, "+
		"occurred_at INTEGER NOT NULL, "+
		"recorded_at INTEGER NOT NULL, "+
		"PRIMARY KEY alert_id"+
		")", a.tableName)

	if _, err := c.SQLExec(ctx, stmt, nil); err != nil {
		c.CloseSession(ctx)
		return fmt.Errorf("failed to create table: %w", err)
	}

	indexStmts := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS ON %s(kind)", a.tableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS ON %s(occurred_at)", a.tableName),
	}
	for _, stmt := range indexStmts {
		if _, err := c.SQLExec(ctx, stmt, nil); err != nil {
			// queries still work without the index, only slower
			log.Printf("Warning: failed to create index on %s: %v", a.tableName, err)
		}
	}

	a.client = c
	a.connected = true
	return nil
}

// Close closes the immudb session
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.connected || a.client == nil {
		return nil
	}
	if err := a.client.CloseSession(context.Background()); err != nil {
		return err
	}
	a.connected = false
	return nil
}

// RecordAlert inserts one alert row
func (a *Archive) RecordAlert(ctx context.Context, record *models.AlertRecord) error {
	c, err := a.session()
	if err != nil {
		return err
	}
	if record == nil {
		return errors.New("alert record cannot be nil")
	}

	stmt := fmt.Sprintf("INSERT INTO %s (alert_id, kind, transaction_id, session_id, status, amount, location, risk_score, occurred_at, recorded_at) "+
		"VALUES (@alert_id, @kind, @transaction_id, @session_id, @status, @amount, @location, @risk_score, @occurred_at, @recorded_at)", a.tableName)

	params := map[string]interface{}{
		"alert_id":       record.AlertID,
		"kind":           record.Kind,
		"transaction_id": record.TransactionID,
		"session_id":     record.SessionID,
		"status":         record.Status,
		"amount":         record.Amount,
		"location":       record.Location,
		"risk_score":     int64(record.RiskScore),
		"occurred_at":    record.OccurredAt.UnixNano(),
		"recorded_at":    record.RecordedAt.UnixNano(),
	}

	start := time.Now()
	_, err = c.SQLExec(ctx, stmt, params)
	a.observe("writeOperations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to write alert: %w", err)
	}
	return nil
}

// RecentAlerts implements the archive.Archive interface
func (a *Archive) RecentAlerts(ctx context.Context, options *archive.QueryOptions) ([]*models.AlertRecord, error) {
	c, err := a.session()
	if err != nil {
		return nil, err
	}
	if options == nil || options.Kind == "" {
		return nil, errors.New("query requires an alert kind")
	}

	limit := 100
	if options.Limit > 0 {
		limit = options.Limit
	}

	query := fmt.Sprintf("SELECT alert_id, kind, transaction_id, session_id, status, amount, location, risk_score, occurred_at, recorded_at "+
		"FROM %s WHERE kind = @kind AND occurred_at >= @since ORDER BY occurred_at DESC LIMIT %d", a.tableName, limit)

	start := time.Now()
	result, err := c.SQLQuery(ctx, query, map[string]interface{}{
		"kind":  options.Kind,
		"since": options.Since.UnixNano(),
	}, true)
	a.observe("queryOperations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	records := make([]*models.AlertRecord, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row.Values) < 10 {
			continue
		}
		v := row.Values
		records = append(records, &models.AlertRecord{
			AlertID:       v[0].GetS(),
			Kind:          v[1].GetS(),
			TransactionID: v[2].GetS(),
			SessionID:     v[3].GetS(),
			Status:        v[4].GetS(),
			Amount:        v[5].GetS(),
			Location:      v[6].GetS(),
			RiskScore:     int(v[7].GetN()),
			OccurredAt:    time.Unix(0, v[8].GetN()).UTC(),
			RecordedAt:    time.Unix(0, v[9].GetN()).UTC(),
		})
	}
	return records, nil
}

// GetMetrics implements the archive.Archive interface
func (a *Archive) GetMetrics() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()

	metrics := make(map[string]interface{}, len(a.metrics))
	for k, v := range a.metrics {
		metrics[k] = v
	}
	return metrics
}

// ResetMetrics implements the archive.Archive interface
func (a *Archive) ResetMetrics() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics = map[string]interface{}{
		"writeOperations":  0,
		"queryOperations":  0,
		"failedOperations": 0,
		"totalLatency":     time.Duration(0),
	}
}

func (a *Archive) session() (SQLClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, errors.New("archive not initialized")
	}
	return a.client, nil
}

func (a *Archive) observe(counter string, latency time.Duration, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.metrics[counter] = a.metrics[counter].(int) + 1
	a.metrics["totalLatency"] = a.metrics["totalLatency"].(time.Duration) + latency
	if err != nil {
		a.metrics["failedOperations"] = a.metrics["failedOperations"].(int) + 1
	}
}
