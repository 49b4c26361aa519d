// Package archive records dispatched alerts to an audit backend. Archived
// alerts are never read back into the live history.
package archive

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/models"
)

// QueryOptions narrows RecentAlerts
type QueryOptions struct {
	Kind  string
	Since time.Time
	Limit int
}

// Archive defines the interface every alert backend must satisfy
type Archive interface {
	// Core operations
	Initialize(ctx context.Context) error
	Close() error

	// RecordAlert stores a single alert
	RecordAlert(ctx context.Context, record *models.AlertRecord) error

	// RecentAlerts returns alerts of one kind recorded at or after Since, newest first
	RecentAlerts(ctx context.Context, options *QueryOptions) ([]*models.AlertRecord, error)

	// Metrics and diagnostics
	GetMetrics() map[string]interface{}
	ResetMetrics()
}

// Factory creates and configures a specific archive implementation
type Factory interface {
	CreateArchive(config map[string]interface{}) (Archive, error)
}

// FactoryFunc adapts a function to Factory
type FactoryFunc func(config map[string]interface{}) (Archive, error)

// CreateArchive implements Factory
func (f FactoryFunc) CreateArchive(config map[string]interface{}) (Archive, error) {
	return f(config)
}

// Registry creates archives by type name
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for an archive type
func (r *Registry) Register(archiveType string, factory Factory) {
	r.factories[strings.ToLower(archiveType)] = factory
}

// Types lists the registered archive types
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create builds an archive of the given type
func (r *Registry) Create(archiveType string, config map[string]interface{}) (Archive, error) {
	factory, ok := r.factories[strings.ToLower(archiveType)]
	if !ok {
		return nil, fmt.Errorf("unknown archive type: %s (supported: %s)", archiveType, strings.Join(r.Types(), ", "))
	}
	if config == nil {
		config = map[string]interface{}{}
	}
	a, err := factory.CreateArchive(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s archive: %w", archiveType, err)
	}
	return a, nil
}

// GetParam retrieves a config value with type assertion and default value
func GetParam[T any](config map[string]interface{}, key string, defaultValue T) T {
	if val, ok := config[key]; ok {
		if result, ok := val.(T); ok {
			return result
		}
	}
	return defaultValue
}

// GetInt reads an integer that may have been decoded as a number or taken
// from an environment variable
func GetInt(config map[string]interface{}, key string, defaultValue int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case uint16:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
