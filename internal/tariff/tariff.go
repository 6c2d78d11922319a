// Package tariff prices energy consumption at a flat rate.
package tariff

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultRate is the flat price per kWh used when none is configured.
const DefaultRate = 0.18

// AnomalyThresholdKWh flags a single reading as a usage spike.
const AnomalyThresholdKWh = 5.0

// Tariff is a flat per-kWh price.
type Tariff struct {
	rate decimal.Decimal
}

func New(rate float64) (Tariff, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return Tariff{}, errors.New("tariff rate must be a non-negative finite number")
	}
	return Tariff{rate: decimal.NewFromFloat(rate)}, nil
}

// MustNew is New for constants known to be valid.
func MustNew(rate float64) Tariff {
	t, err := New(rate)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Tariff) Rate() float64 {
	return t.rate.InexactFloat64()
}

// Cost prices kwh, rounded to 4 decimal places.
func (t Tariff) Cost(kwh float64) float64 {
	return decimal.NewFromFloat(kwh).Mul(t.rate).Round(4).InexactFloat64()
}

// CostOf prices every reading on its own and sums the costs, rounded to 4
// decimal places.
func (t Tariff) CostOf(kwhs []float64) float64 {
	total := decimal.Zero
	for _, k := range kwhs {
		total = total.Add(decimal.NewFromFloat(k).Mul(t.rate))
	}
	return total.Round(4).InexactFloat64()
}

// Round2 rounds a currency amount to cents.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// DetectAnomaly reports whether kwh looks like a usage spike and why.
func DetectAnomaly(kwh float64) (bool, string) {
	if kwh > AnomalyThresholdKWh {
		return true, "High usage spike"
	}
	return false, ""
}
