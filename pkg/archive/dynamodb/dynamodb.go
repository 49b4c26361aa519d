package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/models"
)

// OccurredAtIndex orders alerts of one kind by transaction time
const OccurredAtIndex = "OccurredAtIndex"

// API is the subset of the DynamoDB client the archive uses
type API interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Archive stores alerts in a DynamoDB table keyed by kind and alert id
type Archive struct {
	client      API
	tableName   string
	createTable bool
	rcus, wcus  int64

	mu          sync.Mutex
	metrics     map[string]interface{}
	initialized bool
}

// Config holds the configuration for a DynamoDB archive
type Config struct {
	Region          string
	TableName       string
	Endpoint        string
	ProvisionedRCUs int64
	ProvisionedWCUs int64
	CreateTable     bool
}

// Factory creates DynamoDB archives
type Factory struct{}

// NewFactory creates a new DynamoDB factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateArchive implements the archive.Factory interface
func (f *Factory) CreateArchive(config map[string]interface{}) (archive.Archive, error) {
	cfg := Config{
		Region:          archive.GetParam(config, "region", "us-east-1"),
		TableName:       archive.GetParam(config, "tableName", "FraudAlerts"),
		Endpoint:        archive.GetParam(config, "endpoint", ""),
		ProvisionedRCUs: int64(archive.GetInt(config, "provisionedRCUs", 5)),
		ProvisionedWCUs: int64(archive.GetInt(config, "provisionedWCUs", 5)),
		CreateTable:     archive.GetParam(config, "createTable", false),
	}
	return NewArchive(cfg)
}

// NewArchive creates a DynamoDB archive from the default AWS configuration
func NewArchive(cfg Config) (*Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	if cfg.Endpoint != "" {
		// e.g. DynamoDB Local
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		})
	}

	return NewArchiveWithClient(dynamodb.NewFromConfig(awsCfg), cfg), nil
}

// NewArchiveWithClient creates an archive over an existing client
func NewArchiveWithClient(client API, cfg Config) *Archive {
	a := &Archive{
		client:      client,
		tableName:   cfg.TableName,
		createTable: cfg.CreateTable,
		rcus:        cfg.ProvisionedRCUs,
		wcus:        cfg.ProvisionedWCUs,
	}
	a.ResetMetrics()
	return a
}

// Initialize checks that the table exists, creating it when configured to
func (a *Archive) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	_, err := a.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(a.tableName),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if !errors.As(err, &notFoundErr) {
			return fmt.Errorf("error checking table: %w", err)
		}
		if !a.createTable {
			return fmt.Errorf("table %s does not exist", a.tableName)
		}
		if err := CreateAlertTable(ctx, a.client, a.tableName, a.rcus, a.wcus); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
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

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	start := time.Now()
	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      item,
	})
	a.observe("writeOperations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("PutItem operation failed: %w", err)
	}
	return nil
}

// RecentAlerts implements the archive.Archive interface
func (a *Archive) RecentAlerts(ctx context.Context, options *archive.QueryOptions) ([]*models.AlertRecord, error) {
	if !a.isInitialized() {
		return nil, errors.New("archive not initialized")
	}
	if options == nil || options.Kind == "" {
		return nil, errors.New("query requires an alert kind")
	}

	since, err := attributevalue.Marshal(options.Since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal since: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(a.tableName),
		IndexName:              aws.String(OccurredAtIndex),
		KeyConditionExpression: aws.String("#kind = :kind AND occurredAt >= :since"),
		ExpressionAttributeNames: map[string]string{
			"#kind": "kind",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kind":  &types.AttributeValueMemberS{Value: options.Kind},
			":since": since,
		},
		ScanIndexForward: aws.Bool(false),
	}
	if options.Limit > 0 {
		input.Limit = aws.Int32(int32(options.Limit))
	}

	start := time.Now()
	result, err := a.client.Query(ctx, input)
	a.observe("queryOperations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("Query operation failed: %w", err)
	}

	records := make([]*models.AlertRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record models.AlertRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
		}
		records = append(records, &record)
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

// CreateAlertTable creates the alert table with its time index and waits
// for it to become active. An existing table is not an error.
func CreateAlertTable(ctx context.Context, client API, tableName string, rcus, wcus int64) error {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("kind"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("alertId"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("occurredAt"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("kind"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("alertId"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(OccurredAtIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("kind"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("occurredAt"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
				ProvisionedThroughput: &types.ProvisionedThroughput{
					ReadCapacityUnits:  aws.Int64(rcus),
					WriteCapacityUnits: aws.Int64(wcus),
				},
			},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(rcus),
			WriteCapacityUnits: aws.Int64(wcus),
		},
	}

	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var alreadyExistsErr *types.ResourceInUseException
		if errors.As(err, &alreadyExistsErr) {
			return nil
		}
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to wait for table creation: %w", err)
	}
	return nil
}
