package transactions

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownLocation is the catalog sentinel that always raises the risk score
const UnknownLocation = "Unknown"

// HighRiskAmount is the amount above which a transaction is scored as high risk
const HighRiskAmount = 10000

// Locations is the catalog generated transactions draw from
var Locations = []string{
	"New York, NY", "Los Angeles, CA", "London, UK", "Tokyo, Japan",
	"Paris, France", "Sydney, Australia", "Lagos, Nigeria", "Moscow, Russia",
	"Dubai, UAE", "Singapore", "Berlin, Germany", "Toronto, Canada",
	"Mumbai, India", "São Paulo, Brazil", UnknownLocation,
}

// Generator produces synthetic transactions from an injected random source.
// It is not safe for concurrent use; the stream calls it from a single loop.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithClock overrides the capture time source
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a generator backed by src
func NewGenerator(src rand.Source, opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng: rand.New(src),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates one transaction
func (g *Generator) Generate() Transaction {
	var amount int64
	if g.rng.Float64() > 0.7 {
		// suspicious: [5000, 55000)
		amount = int64(g.rng.Intn(50000)) + 5000
	} else {
		// normal: [50, 2050)
		amount = int64(g.rng.Intn(2000)) + 50
	}

	location := Locations[g.rng.Intn(len(Locations))]

	var riskScore int
	if location == UnknownLocation || amount > HighRiskAmount {
		riskScore = g.rng.Intn(30) + 70
	} else {
		riskScore = g.rng.Intn(40) + 5
	}

	return Transaction{
		ID:        fmt.Sprintf("TXN-%05d", g.rng.Intn(100000)),
		Amount:    decimal.NewFromInt(amount),
		Location:  location,
		Timestamp: g.now().UTC(),
		Status:    Classify(riskScore),
		RiskScore: riskScore,
		IsNew:     true,
	}
}
