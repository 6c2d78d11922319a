package telemetry

import (
	"time"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/tariff"
)

// DefaultRate is the channel's price per kWh.
const DefaultRate = 8.5

const (
	StatusNormal   = "Normal"
	StatusHigh     = "High Usage"
	StatusCritical = "Critical"
)

// Classify maps instantaneous power (W) to a system status.
func Classify(power float64) string {
	switch {
	case power > 5000:
		return StatusCritical
	case power > 3000:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// Efficiency grades instantaneous power (W).
func Efficiency(power float64) string {
	switch {
	case power < 2000:
		return "Excellent"
	case power < 3000:
		return "Good"
	default:
		return "Poor"
	}
}

// Summarise turns a channel sample into the dashboard snapshot.
func Summarise(s Sample, t tariff.Tariff, now time.Time) domain.TelemetrySnapshot {
	ts := s.CreatedAt
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339)
	}
	power := float64(s.Power)
	return domain.TelemetrySnapshot{
		Timestamp:    ts,
		TotalPower:   power,
		TotalCurrent: float64(s.Current),
		AvgVoltage:   float64(s.Voltage),
		TotalEnergy:  float64(s.Energy),
		CostEstimate: t.Cost(float64(s.Energy)),
		SystemStatus: Classify(power),
		Efficiency:   Efficiency(power),
	}
}

// FromLiveReading builds a sample from a live usage reading so the snapshot
// can be served when no channel is configured. Missing voltage and current
// default to 230 V and 5 A.
func FromLiveReading(r domain.LiveUsageReading) Sample {
	voltage, current := 230.0, 5.0
	if r.Voltage != nil {
		voltage = *r.Voltage
	}
	if r.Current != nil {
		current = *r.Current
	}
	return Sample{
		CreatedAt: r.Timestamp,
		Power:     fieldValue(voltage * current),
		Current:   fieldValue(current),
		Voltage:   fieldValue(voltage),
		Energy:    fieldValue(r.KWh),
	}
}
