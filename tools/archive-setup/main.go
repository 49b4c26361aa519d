package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/sinks"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime)

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"all"}
	}

	registry := sinks.NewRegistry()
	ctx := context.Background()

	for _, sink := range args {
		sink = strings.ToLower(sink)
		if sink == "all" {
			for _, t := range registry.Types() {
				if err := setup(ctx, registry, t); err != nil {
					log.Fatalf("Failed to set up %s: %v", t, err)
				}
			}
			continue
		}
		if err := setup(ctx, registry, sink); err != nil {
			log.Fatalf("Failed to set up %s: %v", sink, err)
		}
	}

	log.Println("Archive setup completed successfully")
}

// options builds the factory configuration for one sink from the environment
func options(sink string) map[string]interface{} {
	opts := map[string]interface{}{
		"region":      getEnv("AWS_REGION", "us-east-1"),
		"createTable": true,
	}

	switch sink {
	case sinks.DynamoDB:
		opts["tableName"] = getEnv("DB_TABLE_NAME", "FraudAlerts")
		opts["endpoint"] = getEnv("DB_ENDPOINT", "")
	case sinks.Timestream:
		opts["databaseName"] = getEnv("DB_DATABASE_NAME", "FraudShield")
		opts["tableName"] = getEnv("DB_TABLE_NAME", "Alerts")
		opts["endpoint"] = getEnv("TIMESTREAM_ENDPOINT", "")
	case sinks.ImmuDB:
		opts["address"] = getEnv("IMMUDB_ADDRESS", "127.0.0.1")
		opts["port"] = getEnv("IMMUDB_PORT", "3322")
		opts["username"] = getEnv("IMMUDB_USER", "immudb")
		opts["password"] = getEnv("IMMUDB_PASSWORD", "immudb")
		opts["database"] = getEnv("IMMUDB_DATABASE", "defaultdb")
		opts["tableName"] = getEnv("DB_TABLE_NAME", "fraud_alerts")
	}
	return opts
}

// setup creates the table (and database where the sink has one) for sink
func setup(ctx context.Context, registry *archive.Registry, sink string) error {
	log.Printf("Setting up %s archive...", sink)

	a, err := registry.Create(sink, options(sink))
	if err != nil {
		return err
	}
	defer a.Close()

	// local containers may still be starting
	err = retry(5, time.Second, func() error {
		return a.Initialize(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	log.Printf("%s archive is ready", sink)
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// retry retries a function with exponential backoff
func retry(attempts int, sleep time.Duration, f func() error) error {
	if err := f(); err != nil {
		if attempts--; attempts > 0 {
			log.Printf("Retrying after error: %v", err)
			time.Sleep(sleep)
			return retry(attempts, 2*sleep, f)
		}
		return err
	}
	return nil
}
