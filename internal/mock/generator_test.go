package mock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/tariff"
)

var fixedNow = time.Date(2025, 9, 28, 14, 30, 0, 0, time.UTC)

func newTestGenerator(seed int64) *Generator {
	return NewSeeded(seed, func() time.Time { return fixedNow }, tariff.MustNew(tariff.DefaultRate))
}

func TestSeries_LengthsAndCurrent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		period domain.Period
		want   int
		floor  float64
	}{
		{domain.PeriodDay, HourlyPoints, 100},
		{domain.PeriodMonth, DailyPoints, 300},
		{domain.PeriodYear, MonthlyPoints, 300},
	}
	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			t.Parallel()

			for seed := int64(0); seed < 20; seed++ {
				got := newTestGenerator(seed).Series(tc.period)
				require.Len(t, got.Historical, tc.want)
				assert.Equal(t, got.Historical[len(got.Historical)-1], got.Current)
				for _, p := range got.Historical {
					assert.GreaterOrEqual(t, p.Power, tc.floor)
					assert.GreaterOrEqual(t, p.ACPower, 0.0)
					assert.GreaterOrEqual(t, p.FanPower, 0.0)
					assert.GreaterOrEqual(t, p.HeaterPower, 0.0)
				}
			}
		})
	}
}

func TestSeries_ReproducibleForSeed(t *testing.T) {
	t.Parallel()

	a := newTestGenerator(42).Series(domain.PeriodDay)
	b := newTestGenerator(42).Series(domain.PeriodDay)
	assert.Equal(t, a, b)

	c := newTestGenerator(43).Series(domain.PeriodDay)
	assert.NotEqual(t, a.Historical[0].Power, c.Historical[0].Power)
}

func TestHourly_ShapeOfTheDay(t *testing.T) {
	t.Parallel()

	pts := newTestGenerator(1).Hourly()
	for h, p := range pts {
		assert.Equal(t, time.Date(2025, 9, 28, h, 0, 0, 0, time.UTC), p.Timestamp)
		if h >= 6 && h <= 18 {
			assert.Zero(t, p.HeaterPower, "hour %d", h)
		} else {
			assert.InDelta(t, 50, p.HeaterPower, 15, "hour %d", h)
		}
		assert.GreaterOrEqual(t, p.ACPower, 50.0)
		assert.GreaterOrEqual(t, p.FanPower, 30.0)
	}
	// sin peaks at hour 6: 300 + 300 = 600 before noise.
	assert.InDelta(t, 600, pts[6].Power, 50)
}

func TestDaily_TrailingThirtyDays(t *testing.T) {
	t.Parallel()

	pts := newTestGenerator(1).Daily()
	assert.Equal(t, time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC), pts[0].Timestamp)
	assert.Equal(t, time.Date(2025, 9, 28, 0, 0, 0, 0, time.UTC), pts[len(pts)-1].Timestamp)
	for _, p := range pts {
		assert.GreaterOrEqual(t, p.ACPower, 200.0)
		assert.GreaterOrEqual(t, p.FanPower, 100.0)
	}
}

func TestMonthly_SeasonalLoads(t *testing.T) {
	t.Parallel()

	pts := newTestGenerator(1).Monthly()
	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), pts[0].Timestamp)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), pts[len(pts)-1].Timestamp)

	for _, p := range pts {
		month := int(p.Timestamp.Month()) - 1
		if month >= 4 && month <= 9 {
			assert.GreaterOrEqual(t, p.ACPower, 200.0, "month %d", month)
		}
		if month <= 2 || month >= 10 {
			assert.GreaterOrEqual(t, p.HeaterPower, 100.0, "month %d", month)
		}
	}
}

func TestLiveReading_Ranges(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(9)
	for i := 0; i < 100; i++ {
		r := g.LiveReading()
		assert.Equal(t, DemoCustomerID, r.CustomerID)
		assert.GreaterOrEqual(t, r.KWh, 0.5)
		assert.Less(t, r.KWh, 1.7)
		assert.InDelta(t, r.KWh*0.18, r.Cost, 1e-12)
		require.NotNil(t, r.Voltage)
		require.NotNil(t, r.Current)
		assert.GreaterOrEqual(t, *r.Voltage, 230.0)
		assert.Less(t, *r.Voltage, 233.0)
		assert.GreaterOrEqual(t, *r.Current, 5.0)
		assert.Less(t, *r.Current, 6.0)
		require.NotNil(t, r.Notes)
		assert.Equal(t, "mock", *r.Notes)
	}
}

func TestBilling_Dates(t *testing.T) {
	t.Parallel()

	b := newTestGenerator(1).Billing()
	assert.Equal(t, DemoCustomerID, b.CustomerID)
	assert.Equal(t, 42.35, b.DueAmount)
	assert.Equal(t, "2025-10-05T14:30:00.000Z", b.DueDate)
	assert.Equal(t, "2025-08-27T14:30:00.000Z", b.LastPaymentDate)
	require.NotNil(t, b.LastPaymentAmount)
	assert.Equal(t, 35.12, *b.LastPaymentAmount)
}

func TestAnalytics_Granularities(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(3)

	daily := g.Analytics(domain.GranularityDaily)
	require.Len(t, daily, DailyPoints)
	assert.Equal(t, "2025-08-30", daily[0].Period)
	assert.Equal(t, "2025-09-28", daily[len(daily)-1].Period)

	monthly := g.Analytics(domain.GranularityMonthly)
	require.Len(t, monthly, MonthlyPoints)
	assert.Equal(t, "2024-10", monthly[0].Period)

	yearly := g.Analytics(domain.GranularityYearly)
	require.Len(t, yearly, 2)
	assert.Equal(t, []string{"2024", "2025"}, []string{yearly[0].Period, yearly[1].Period})

	for _, p := range append(daily, yearly...) {
		assert.Greater(t, p.KWh, 0.0)
		assert.InDelta(t, p.KWh*0.18, p.Cost, 1e-3)
	}
}
