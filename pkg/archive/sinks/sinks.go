// Package sinks registers the archive backends shipped with FraudShield.
package sinks

import (
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/dynamodb"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/immudb"
	"github.com/pedro-hbl/fraudshield-stream/pkg/archive/timestream"
)

// Archive type names
const (
	DynamoDB   = "dynamodb"
	Timestream = "timestream"
	ImmuDB     = "immudb"
)

// NewRegistry returns a registry with every backend registered
func NewRegistry() *archive.Registry {
	r := archive.NewRegistry()
	r.Register(DynamoDB, dynamodb.NewFactory())
	r.Register(Timestream, timestream.NewFactory())
	r.Register(ImmuDB, immudb.NewFactory())
	return r
}
