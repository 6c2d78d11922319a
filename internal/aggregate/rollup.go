package aggregate

import (
	"slices"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/tariff"
)

// Rollup sums readings into chronological period buckets. A bucket's cost is
// the sum of its readings' costs. Bucket labels use each reading's own
// location.
func Rollup(g domain.Granularity, readings []domain.Reading, t tariff.Tariff) []domain.AnalyticsPoint {
	sorted := slices.Clone(readings)
	slices.SortStableFunc(sorted, func(a, b domain.Reading) int { return a.Time.Compare(b.Time) })

	out := []domain.AnalyticsPoint{}
	var kwhs [][]float64
	for _, r := range sorted {
		label := g.Label(r.Time)
		if n := len(out); n > 0 && out[n-1].Period == label {
			out[n-1].KWh += r.KWh
			kwhs[n-1] = append(kwhs[n-1], r.KWh)
			continue
		}
		out = append(out, domain.AnalyticsPoint{Period: label, KWh: r.KWh})
		kwhs = append(kwhs, []float64{r.KWh})
	}
	for i := range out {
		out[i].Cost = t.CostOf(kwhs[i])
	}
	return out
}
