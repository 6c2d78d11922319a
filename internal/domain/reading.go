package domain

import "time"

// Reading represents a single metered energy reading at a point in time.
type Reading struct {
	Time time.Time
	KWh  float64
}
