package archive

import (
	"context"
	"errors"
	"sync"

	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/models"
)

var errMockWrite = errors.New("mock write error")

// mockArchive implements Archive for testing
type mockArchive struct {
	mu      sync.Mutex
	records []*models.AlertRecord
	closed  bool

	// RecordFunc overrides RecordAlert when set
	RecordFunc func(ctx context.Context, record *models.AlertRecord) error
}

func (m *mockArchive) Initialize(ctx context.Context) error { return nil }

func (m *mockArchive) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockArchive) RecordAlert(ctx context.Context, record *models.AlertRecord) error {
	if m.RecordFunc != nil {
		if err := m.RecordFunc(ctx, record); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *mockArchive) RecentAlerts(ctx context.Context, options *QueryOptions) ([]*models.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AlertRecord{}, m.records...), nil
}

func (m *mockArchive) GetMetrics() map[string]interface{} { return map[string]interface{}{} }
func (m *mockArchive) ResetMetrics()                      {}

func (m *mockArchive) stored() []*models.AlertRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AlertRecord{}, m.records...)
}

func (m *mockArchive) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
