package transactions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the classification of a transaction
type Status string

const (
	// Legitimate marks a transaction that raised no concern
	Legitimate Status = "legitimate"
	// Pending marks a transaction that needs a second look
	Pending Status = "pending"
	// Fraudulent marks a transaction flagged as fraud
	Fraudulent Status = "fraudulent"
)

// Classification thresholds for the live stream
const (
	FraudThreshold   = 80 // scores above this are fraudulent
	PendingThreshold = 50 // scores above this (up to FraudThreshold) are pending
)

// TimestampLayout is the human-readable capture time format
const TimestampLayout = "2006-01-02 15:04"

// Transaction is a single event of the monitored stream
type Transaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Location  string          `json:"location"`
	Timestamp time.Time       `json:"timestamp"`
	Status    Status          `json:"status"`
	RiskScore int             `json:"riskScore"`
	IsNew     bool            `json:"isNew"`
}

// DisplayTime returns the capture time in TimestampLayout
func (t Transaction) DisplayTime() string {
	return t.Timestamp.UTC().Format(TimestampLayout)
}

// Classify maps a risk score to its status
func Classify(riskScore int) Status {
	switch {
	case riskScore > FraudThreshold:
		return Fraudulent
	case riskScore > PendingThreshold:
		return Pending
	default:
		return Legitimate
	}
}

// RiskBand buckets a score for display: low, medium or high
func RiskBand(riskScore int) string {
	switch {
	case riskScore < 30:
		return "low"
	case riskScore < 70:
		return "medium"
	default:
		return "high"
	}
}

// AlertKind identifies the severity of an alert
type AlertKind string

const (
	AlertFraud   AlertKind = "fraud"
	AlertWarning AlertKind = "warning"
	AlertInfo    AlertKind = "info"
)

// Alert is the payload delivered to the alert ports
type Alert struct {
	Kind      AlertKind       `json:"kind"`
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Location  string          `json:"location"`
	RiskScore int             `json:"riskScore"`
	At        time.Time       `json:"at"`
}

// NewAlert builds an alert of the given kind for a transaction
func NewAlert(kind AlertKind, tx Transaction) Alert {
	return Alert{
		Kind:      kind,
		ID:        tx.ID,
		Amount:    tx.Amount,
		Location:  tx.Location,
		RiskScore: tx.RiskScore,
		At:        tx.Timestamp,
	}
}

// InitialTransactions returns the static set shown before the stream delivers anything
func InitialTransactions() []Transaction {
	return []Transaction{
		seed("TXN-00001", 1250, "New York, NY", "2025-01-12 14:23", 12),
		seed("TXN-00002", 8750, "Lagos, Nigeria", "2025-01-12 14:21", 94),
		seed("TXN-00003", 450, "London, UK", "2025-01-12 14:19", 8),
		seed("TXN-00004", 15000, "Moscow, Russia", "2025-01-12 14:18", 89),
		seed("TXN-00005", 320, "San Francisco, CA", "2025-01-12 14:16", 15),
	}
}

func seed(id string, amount int64, location, at string, riskScore int) Transaction {
	ts, err := time.Parse(TimestampLayout, at)
	if err != nil {
		panic(err)
	}
	return Transaction{
		ID:        id,
		Amount:    decimal.NewFromInt(amount),
		Location:  location,
		Timestamp: ts,
		Status:    Classify(riskScore),
		RiskScore: riskScore,
	}
}
