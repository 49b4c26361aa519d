package transactions

import "testing"

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  Status
	}{
		{0, Legitimate},
		{44, Legitimate},
		{50, Legitimate},
		{51, Pending},
		{80, Pending},
		{81, Fraudulent},
		{100, Fraudulent},
	}

	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRiskBand(t *testing.T) {
	t.Parallel()

	tests := map[int]string{5: "low", 29: "low", 30: "medium", 69: "medium", 70: "high", 99: "high"}
	for score, want := range tests {
		if got := RiskBand(score); got != want {
			t.Errorf("RiskBand(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestInitialTransactions(t *testing.T) {
	t.Parallel()

	seed := InitialTransactions()
	if len(seed) != 5 {
		t.Fatalf("Expected 5 seed transactions, got %d", len(seed))
	}

	for _, tx := range seed {
		if tx.Status != Classify(tx.RiskScore) {
			t.Errorf("%s: status %s does not match score %d", tx.ID, tx.Status, tx.RiskScore)
		}
		if tx.IsNew {
			t.Errorf("%s: seed transaction must not be new", tx.ID)
		}
	}

	if seed[1].DisplayTime() != "2025-01-12 14:21" {
		t.Errorf("Expected display time 2025-01-12 14:21, got %s", seed[1].DisplayTime())
	}
}

func TestNewAlert(t *testing.T) {
	t.Parallel()

	tx := InitialTransactions()[3]
	alert := NewAlert(AlertFraud, tx)

	if alert.ID != tx.ID || alert.RiskScore != tx.RiskScore || alert.Location != tx.Location {
		t.Errorf("Alert %+v does not mirror transaction %+v", alert, tx)
	}
	if !alert.Amount.Equal(tx.Amount) {
		t.Errorf("Expected amount %s, got %s", tx.Amount, alert.Amount)
	}
}
