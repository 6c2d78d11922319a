// Package mock fabricates plausible meter data for running without a backend.
package mock

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/tariff"
)

const (
	HourlyPoints  = 24
	DailyPoints   = 30
	MonthlyPoints = 12

	// DemoCustomerID identifies the single customer of mock mode.
	DemoCustomerID domain.CustomerID = "demo-1"
)

// Generator produces randomized series with a fixed shape. It is safe for
// concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
	tariff tariff.Tariff
}

// New returns a Generator drawing from rng. A nil now uses time.Now.
func New(rng *rand.Rand, now func() time.Time, t tariff.Tariff) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now, tariff: t}
}

// NewSeeded is a Generator whose output is reproducible for a fixed seed and clock.
func NewSeeded(seed int64, now func() time.Time, t tariff.Tariff) *Generator {
	return New(rand.New(rand.NewSource(seed)), now, t)
}

// Series returns the historical series for p with its last point as current.
func (g *Generator) Series(p domain.Period) domain.PowerUsage {
	var pts []domain.UsagePoint
	switch p {
	case domain.PeriodMonth:
		pts = g.Daily()
	case domain.PeriodYear:
		pts = g.Monthly()
	default:
		pts = g.Hourly()
	}
	return domain.PowerUsage{Historical: pts, Current: pts[len(pts)-1]}
}

// Hourly returns one point per hour of the current day.
func (g *Generator) Hourly() []domain.UsagePoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	out := make([]domain.UsagePoint, 0, HourlyPoints)
	for h := 0; h < HourlyPoints; h++ {
		ts := time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
		base := 300 + math.Sin(float64(h)*math.Pi/12)*300

		heater := 0.0
		power := math.Max(100, base+g.noise(50))
		ac := math.Max(50, base*0.7+g.noise(25))
		fan := math.Max(30, 150+g.noise(25))
		if h < 6 || h > 18 {
			heater = math.Max(0, 50+g.noise(15))
		}
		out = append(out, domain.UsagePoint{
			Timestamp:   ts.UTC(),
			Power:       power,
			ACPower:     ac,
			FanPower:    fan,
			HeaterPower: heater,
		})
	}
	return out
}

// Daily returns one point per day for the trailing 30 days, oldest first.
func (g *Generator) Daily() []domain.UsagePoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	out := make([]domain.UsagePoint, 0, DailyPoints)
	for i := DailyPoints - 1; i >= 0; i-- {
		ts := time.Date(now.Year(), now.Month(), now.Day()-i, 0, 0, 0, 0, now.Location())
		base := 500 + math.Sin(float64(i)*math.Pi/15)*200

		out = append(out, domain.UsagePoint{
			Timestamp:   ts.UTC(),
			Power:       math.Max(300, base+g.noise(50)),
			ACPower:     math.Max(200, base*0.6+g.noise(40)),
			FanPower:    math.Max(100, base*0.3+g.noise(25)),
			HeaterPower: math.Max(0, base*0.1+g.noise(15)),
		})
	}
	return out
}

// Monthly returns one point per month for the trailing 12 months, oldest
// first. Summer months (May-Oct) lean on AC, winter months on the heater.
func (g *Generator) Monthly() []domain.UsagePoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	out := make([]domain.UsagePoint, 0, MonthlyPoints)
	for i := MonthlyPoints - 1; i >= 0; i-- {
		ts := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		month := int(ts.Month()) - 1
		season := 500 + math.Cos(float64(month-6)*math.Pi/6)*200

		var ac, heater float64
		if month >= 4 && month <= 9 {
			ac = math.Max(200, season*0.6)
		} else {
			ac = math.Max(50, season*0.2)
		}
		if month <= 2 || month >= 10 {
			heater = math.Max(100, season*0.4)
		} else {
			heater = math.Max(0, season*0.1)
		}
		out = append(out, domain.UsagePoint{
			Timestamp:   ts.UTC(),
			Power:       math.Max(300, season+g.noise(50)),
			ACPower:     ac,
			FanPower:    math.Max(100, 200+g.noise(25)),
			HeaterPower: heater,
		})
	}
	return out
}

// LiveReading fabricates the latest meter reading.
func (g *Generator) LiveReading() domain.LiveUsageReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	kwh := 0.5 + g.rng.Float64()*1.2
	voltage := 230 + g.rng.Float64()*3
	current := 5 + g.rng.Float64()
	notes := "mock"
	return domain.LiveUsageReading{
		Timestamp:  formatTime(g.now()),
		CustomerID: DemoCustomerID,
		KWh:        kwh,
		Cost:       kwh * g.tariff.Rate(),
		Voltage:    &voltage,
		Current:    &current,
		Notes:      &notes,
	}
}

// Billing fabricates the current balance: due in a week, last paid a month ago.
func (g *Generator) Billing() domain.BillingRecord {
	now := g.now()
	lastPaid := 35.12
	return domain.BillingRecord{
		CustomerID:        DemoCustomerID,
		DueAmount:         42.35,
		DueDate:           formatTime(now.Add(7 * 24 * time.Hour)),
		LastPaymentAmount: &lastPaid,
		LastPaymentDate:   formatTime(now.Add(-32 * 24 * time.Hour)),
	}
}

// Now exposes the generator clock so mock responses share one notion of time.
func (g *Generator) Now() time.Time {
	return g.now()
}

// noise draws uniformly from [-amp, +amp). Callers hold g.mu.
func (g *Generator) noise(amp float64) float64 {
	return g.rng.Float64()*2*amp - amp
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
