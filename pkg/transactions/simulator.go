package transactions

import (
	"errors"
	"strings"
)

// SimulatorFraudThreshold is the what-if scorer's cut-off. It differs from
// FraudThreshold used by the live stream; the two are kept apart on purpose
// until the business rule is settled.
const SimulatorFraudThreshold = 60

// SimulatorLargeAmount is the amount above which the what-if scorer adds risk
const SimulatorLargeAmount = 5000

var simulatorHighRiskLocations = []string{"nigeria", "russia", "china"}

// SimulationInput describes a hypothetical transaction
type SimulationInput struct {
	Amount   float64 `json:"amount"`
	Location string  `json:"location"`
	Hour     int     `json:"hour"` // 0-23
}

// SimulationResult is the what-if scorer's verdict
type SimulationResult struct {
	Prediction Status   `json:"prediction"`
	RiskScore  int      `json:"riskScore"`
	Factors    []string `json:"factors"`
}

// ErrIncompleteSimulation is returned when a simulation input is missing a field
var ErrIncompleteSimulation = errors.New("amount, location and time are all required")

// Simulate scores a hypothetical transaction with fixed rules
func Simulate(in SimulationInput) (SimulationResult, error) {
	if in.Amount <= 0 || strings.TrimSpace(in.Location) == "" || in.Hour < 0 || in.Hour > 23 {
		return SimulationResult{}, ErrIncompleteSimulation
	}

	riskScore := 10
	factors := []string{}

	if in.Amount > SimulatorLargeAmount {
		riskScore += 30
		factors = append(factors, "Transaction amount exceeds normal threshold")
	}

	location := strings.ToLower(in.Location)
	for _, loc := range simulatorHighRiskLocations {
		if strings.Contains(location, loc) {
			riskScore += 40
			factors = append(factors, "Transaction location flagged as high-risk")
			break
		}
	}

	if in.Hour < 6 || in.Hour > 22 {
		riskScore += 20
		factors = append(factors, "Unusual transaction time detected")
	}

	if len(factors) == 0 {
		factors = append(factors, "Transaction appears normal")
	}

	prediction := Legitimate
	if riskScore > SimulatorFraudThreshold {
		prediction = Fraudulent
	}
	if riskScore > 99 {
		riskScore = 99
	}

	return SimulationResult{
		Prediction: prediction,
		RiskScore:  riskScore,
		Factors:    factors,
	}, nil
}
