package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// AlertRecord is one dispatched alert as written to an archive backend
type AlertRecord struct {
	// AlertID is unique per dispatch; a transaction can be archived once per kind
	AlertID string `json:"alertId" dynamodbav:"alertId"`

	// Kind is fraud or warning
	Kind string `json:"kind" dynamodbav:"kind"`

	TransactionID string `json:"transactionId" dynamodbav:"transactionId"`
	SessionID     string `json:"sessionId" dynamodbav:"sessionId"`
	Status        string `json:"status" dynamodbav:"status"`

	// Amount keeps the decimal's string form so no precision is lost
	Amount    string `json:"amount" dynamodbav:"amount"`
	Location  string `json:"location" dynamodbav:"location"`
	RiskScore int    `json:"riskScore" dynamodbav:"riskScore"`

	// OccurredAt is the transaction timestamp, RecordedAt the dispatch time
	OccurredAt time.Time `json:"occurredAt" dynamodbav:"occurredAt"`
	RecordedAt time.Time `json:"recordedAt" dynamodbav:"recordedAt"`
}

// NewAlertRecord builds a record for an alert raised in a session
func NewAlertRecord(sessionID string, alert transactions.Alert, status transactions.Status) *AlertRecord {
	return &AlertRecord{
		AlertID:       uuid.New().String(),
		Kind:          string(alert.Kind),
		TransactionID: alert.ID,
		SessionID:     sessionID,
		Status:        string(status),
		Amount:        alert.Amount.StringFixed(2),
		Location:      alert.Location,
		RiskScore:     alert.RiskScore,
		OccurredAt:    alert.At.UTC(),
		RecordedAt:    time.Now().UTC(),
	}
}
