package mock

import (
	"github.com/milad/smartmeter/internal/aggregate"
	"github.com/milad/smartmeter/internal/domain"
)

// Analytics derives per-period energy totals from the power series. Each
// point's average power is held for the whole bucket.
func (g *Generator) Analytics(gr domain.Granularity) []domain.AnalyticsPoint {
	loc := g.Now().Location()

	var readings []domain.Reading
	switch gr {
	case domain.GranularityMonthly, domain.GranularityYearly:
		for _, p := range g.Monthly() {
			start := p.Timestamp.In(loc)
			hours := start.AddDate(0, 1, 0).Sub(start).Hours()
			readings = append(readings, domain.Reading{Time: start, KWh: p.Power * hours / 1000})
		}
	default:
		for _, p := range g.Daily() {
			readings = append(readings, domain.Reading{Time: p.Timestamp.In(loc), KWh: p.Power * 24 / 1000})
		}
	}
	return aggregate.Rollup(gr, readings, g.tariff)
}
