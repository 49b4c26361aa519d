package timestream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/timestreamquery"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite/types"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/models"
)

// MeasureName is the Timestream measure holding the risk score
const MeasureName = "risk_score"

// WriteAPI is the subset of the Timestream write client the archive uses
type WriteAPI interface {
	DescribeDatabase(ctx context.Context, params *timestreamwrite.DescribeDatabaseInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.DescribeDatabaseOutput, error)
	CreateDatabase(ctx context.Context, params *timestreamwrite.CreateDatabaseInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.CreateDatabaseOutput, error)
	DescribeTable(ctx context.Context, params *timestreamwrite.DescribeTableInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *timestreamwrite.CreateTableInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.CreateTableOutput, error)
	WriteRecords(ctx context.Context, params *timestreamwrite.WriteRecordsInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.WriteRecordsOutput, error)
}

// QueryAPI is the subset of the Timestream query client the archive uses
type QueryAPI interface {
	Query(ctx context.Context, params *timestreamquery.QueryInput, optFns ...func(*timestreamquery.Options)) (*timestreamquery.QueryOutput, error)
}

// Archive stores alerts as Timestream records with the risk score as measure
type Archive struct {
	writeClient  WriteAPI
	queryClient  QueryAPI
	databaseName string
	tableName    string

	mu          sync.Mutex
	metrics     map[string]interface{}
	initialized bool
}

// Config holds configuration for the Timestream archive
type Config struct {
	Region       string
	DatabaseName string
	TableName    string
	Endpoint     string
}

// Factory creates Timestream archives
type Factory struct{}

// NewFactory creates a new Timestream factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateArchive implements the archive.Factory interface
func (f *Factory) CreateArchive(config map[string]interface{}) (archive.Archive, error) {
	return NewArchive(Config{
		Region:       archive.GetParam(config, "region", "us-east-1"),
		DatabaseName: archive.GetParam(config, "databaseName", "FraudShield"),
		TableName:    archive.GetParam(config, "tableName", "Alerts"),
		Endpoint:     archive.GetParam(config, "endpoint", ""),
	})
}

// NewArchive creates a Timestream archive from the default AWS configuration
func NewArchive(cfg Config) (*Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	if cfg.Endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == timestreamwrite.ServiceID || service == timestreamquery.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
	}

	return NewArchiveWithClients(
		timestreamwrite.NewFromConfig(awsCfg),
		timestreamquery.NewFromConfig(awsCfg),
		cfg,
	), nil
}

// NewArchiveWithClients creates an archive over existing clients
func NewArchiveWithClients(w WriteAPI, q QueryAPI, cfg Config) *Archive {
	a := &Archive{
		writeClient:  w,
		queryClient:  q,
		databaseName: cfg.DatabaseName,
		tableName:    cfg.TableName,
	}
	a.ResetMetrics()
	return a
}

// Initialize creates the database and table when they are missing
func (a *Archive) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	if err := EnsureDatabase(ctx, a.writeClient, a.databaseName); err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}
	if err := EnsureTable(ctx, a.writeClient, a.databaseName, a.tableName); err != nil {
		return fmt.Errorf("failed to ensure table exists: %w", err)
	}

	a.initialized = true
	return nil
}

// Close implements the archive.Archive interface
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initialized = false
	return nil
}

// RecordAlert implements the archive.Archive interface
func (a *Archive) RecordAlert(ctx context.Context, record *models.AlertRecord) error {
	if !a.isInitialized() {
		return errors.New("archive not initialized")
	}
	if record == nil {
		return errors.New("alert record cannot be nil")
	}

	start := time.Now()
	_, err := a.writeClient.WriteRecords(ctx, &timestreamwrite.WriteRecordsInput{
		DatabaseName: aws.String(a.databaseName),
		TableName:    aws.String(a.tableName),
		Records:      []types.Record{toRecord(record)},
	})
	a.observe("writeOperations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func toRecord(record *models.AlertRecord) types.Record {
	dimension := func(name, value string) types.Dimension {
		return types.Dimension{Name: aws.String(name), Value: aws.String(value)}
	}

	return types.Record{
		Dimensions: []types.Dimension{
			dimension("alert_id", record.AlertID),
			dimension("kind", record.Kind),
			dimension("transaction_id", record.TransactionID),
			dimension("session_id", record.SessionID),
			dimension("status", record.Status),
			dimension("amount", record.Amount),
			dimension("location", record.Location),
		},
		MeasureName:      aws.String(MeasureName),
		MeasureValue:     aws.String(strconv.Itoa(record.RiskScore)),
		MeasureValueType: types.MeasureValueTypeBigint,
		Time:             aws.String(strconv.FormatInt(record.OccurredAt.UnixNano(), 10)),
		TimeUnit:         types.TimeUnitNanoseconds,
	}
}

// RecentAlerts implements the archive.Archive interface
func (a *Archive) RecentAlerts(ctx context.Context, options *archive.QueryOptions) ([]*models.AlertRecord, error) {
	if !a.isInitialized() {
		return nil, errors.New("archive not initialized")
	}
	if options == nil || options.Kind == "" {
		return nil, errors.New("query requires an alert kind")
	}

	limit := 100
	if options.Limit > 0 {
		limit = options.Limit
	}

	query := fmt.Sprintf(`
		SELECT alert_id, kind, transaction_id, session_id, status, amount, location, measure_value::bigint AS risk_score, time
		FROM "%s"."%s"
		WHERE kind = '%s' AND measure_name = '%s' AND time >= from_nanoseconds(%d)
		ORDER BY time DESC
		LIMIT %d
	`, a.databaseName, a.tableName, escape(options.Kind), MeasureName, options.Since.UnixNano(), limit)

	start := time.Now()
	result, err := a.queryClient.Query(ctx, &timestreamquery.QueryInput{
		QueryString: aws.String(query),
	})
	a.observe("queryOperations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	records := make([]*models.AlertRecord, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row.Data) < 9 {
			continue
		}
		values := make([]string, len(row.Data))
		for i, d := range row.Data {
			if d.ScalarValue != nil {
				values[i] = *d.ScalarValue
			}
		}

		score, err := strconv.Atoi(values[7])
		if err != nil {
			continue
		}
		occurredAt, err := parseTimestreamTime(values[8])
		if err != nil {
			continue
		}

		records = append(records, &models.AlertRecord{
			AlertID:       values[0],
			Kind:          values[1],
			TransactionID: values[2],
			SessionID:     values[3],
			Status:        values[4],
			Amount:        values[5],
			Location:      values[6],
			RiskScore:     score,
			OccurredAt:    occurredAt,
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

func (a *Archive) isInitialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
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

// EnsureDatabase creates the Timestream database if it does not exist
func EnsureDatabase(ctx context.Context, client WriteAPI, databaseName string) error {
	_, err := client.DescribeDatabase(ctx, &timestreamwrite.DescribeDatabaseInput{
		DatabaseName: aws.String(databaseName),
	})
	if err == nil {
		return nil
	}

	var notFoundErr *types.ResourceNotFoundException
	if !errors.As(err, &notFoundErr) {
		return fmt.Errorf("error checking database existence: %w", err)
	}

	_, err = client.CreateDatabase(ctx, &timestreamwrite.CreateDatabaseInput{
		DatabaseName: aws.String(databaseName),
	})
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}

// EnsureTable creates the alert table if it does not exist
func EnsureTable(ctx context.Context, client WriteAPI, databaseName, tableName string) error {
	_, err := client.DescribeTable(ctx, &timestreamwrite.DescribeTableInput{
		DatabaseName: aws.String(databaseName),
		TableName:    aws.String(tableName),
	})
	if err == nil {
		return nil
	}

	var notFoundErr *types.ResourceNotFoundException
	if !errors.As(err, &notFoundErr) {
		return fmt.Errorf("error checking table existence: %w", err)
	}

	_, err = client.CreateTable(ctx, &timestreamwrite.CreateTableInput{
		DatabaseName: aws.String(databaseName),
		TableName:    aws.String(tableName),
		RetentionProperties: &types.RetentionProperties{
			MagneticStoreRetentionPeriodInDays: aws.Int64(365),
			MemoryStoreRetentionPeriodInHours:  aws.Int64(24),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// parseTimestreamTime converts a Timestream time string to a time.Time
func parseTimestreamTime(timeStr string) (time.Time, error) {
	if nanos, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
		return time.Unix(0, nanos).UTC(), nil
	}
	// Timestream renders timestamps as "2006-01-02 15:04:05.000000000"
	for _, layout := range []string{"2006-01-02 15:04:05.999999999", time.RFC3339Nano} {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp: %s", timeStr)
}
