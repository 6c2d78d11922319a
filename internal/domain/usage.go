package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// UsagePoint is one bucket of a power series. Power values are in watts.
type UsagePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Power       float64   `json:"power"`
	ACPower     float64   `json:"ac_power"`
	FanPower    float64   `json:"fan_power"`
	HeaterPower float64   `json:"heater_power"`
}

// PowerUsage is a historical series plus the reading reported as current.
type PowerUsage struct {
	Historical []UsagePoint `json:"historical"`
	Current    UsagePoint   `json:"current"`
}

// AnalyticsPoint is the energy consumed in one period bucket.
type AnalyticsPoint struct {
	Period string  `json:"period"`
	KWh    float64 `json:"kwh"`
	Cost   float64 `json:"cost"`
}

// CustomerID is carried as a string but accepts JSON numbers, since the
// billing backend identifies customers by integer.
type CustomerID string

func (c *CustomerID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = CustomerID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("customer_id: %w", err)
	}
	*c = CustomerID(n.String())
	return nil
}

// LiveUsageReading is the latest meter reading. It is never stored.
type LiveUsageReading struct {
	Timestamp  string     `json:"timestamp"`
	CustomerID CustomerID `json:"customer_id"`
	KWh        float64    `json:"kwh"`
	Cost       float64    `json:"cost"`
	Voltage    *float64   `json:"voltage,omitempty"`
	Current    *float64   `json:"current,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// BillingRecord is a snapshot of what a customer owes.
type BillingRecord struct {
	CustomerID        CustomerID `json:"customer_id"`
	DueAmount         float64    `json:"due_amount"`
	DueDate           string     `json:"due_date,omitempty"`
	LastPaymentAmount *float64   `json:"last_payment_amount,omitempty"`
	LastPaymentDate   string     `json:"last_payment_date,omitempty"`
}

// Overlay is an AnalyticsPoint decorated with the derived chart series.
// KWhLiveProgress is nil for buckets the progress cursor has not reached.
type Overlay struct {
	AnalyticsPoint
	KWhLive         float64  `json:"kwhLive"`
	KWhCum          float64  `json:"kwhCum"`
	KWhLiveProgress *float64 `json:"kwhLiveProgress,omitempty"`
}

// Recommendation is one energy saving suggestion.
type Recommendation struct {
	Category         string   `json:"category"`
	Device           string   `json:"device"`
	Issue            string   `json:"issue"`
	Recommendation   []string `json:"recommendation"`
	PotentialSavings string   `json:"potential_savings"`
}

// TelemetrySnapshot summarises the most recent sample from the meter channel.
type TelemetrySnapshot struct {
	Timestamp    string  `json:"timestamp"`
	TotalPower   float64 `json:"total_power"`
	TotalCurrent float64 `json:"total_current"`
	AvgVoltage   float64 `json:"avg_voltage"`
	TotalEnergy  float64 `json:"total_energy"`
	CostEstimate float64 `json:"cost_estimate"`
	SystemStatus string  `json:"system_status"`
	Efficiency   string  `json:"efficiency"`
}
