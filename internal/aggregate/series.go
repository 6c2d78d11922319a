// Package aggregate derives chart overlays from analytics series. Nothing
// here mutates its input.
package aggregate

import (
	"math"

	"github.com/samber/lo"

	"github.com/milad/smartmeter/internal/domain"
)

const (
	// PeakBump is the largest relative lift applied at the live cursor.
	PeakBump = 0.08
	// BumpDecay is how much of the lift fades per bucket behind the cursor.
	BumpDecay = 0.25
)

// BumpCursor maps a monotonically increasing tick onto a series of n points.
func BumpCursor(tick, n int) int {
	if n <= 0 {
		return 0
	}
	c := tick % n
	if c < 0 {
		c += n
	}
	return c
}

// BumpFactor is 1 at the cursor, fades linearly behind it and is 0 ahead of it.
func BumpFactor(i, cursor int) float64 {
	if i > cursor {
		return 0
	}
	return math.Max(0, 1-float64(cursor-i)*BumpDecay)
}

// LiveBump returns kwh lifted by up to PeakBump around the cursor.
func LiveBump(points []domain.AnalyticsPoint, cursor int) []float64 {
	return lo.Map(points, func(p domain.AnalyticsPoint, i int) float64 {
		return p.KWh * (1 + PeakBump*BumpFactor(i, cursor))
	})
}

// Cumulative returns the running sum of kwh in series order.
func Cumulative(points []domain.AnalyticsPoint) []float64 {
	out := make([]float64, len(points))
	acc := 0.0
	for i, p := range points {
		acc += p.KWh
		out[i] = acc
	}
	return out
}

// Progress reveals the cumulative series up to a fractional cursor. Buckets
// behind the cursor keep their cumulative value, the bucket under it is
// interpolated towards the next one and buckets ahead of it are nil.
func Progress(cum []float64, progress float64) []*float64 {
	out := make([]*float64, len(cum))
	if len(cum) == 0 {
		return out
	}
	if progress < 0 || math.IsNaN(progress) {
		progress = 0
	}
	maxIdx := len(cum) - 1
	idx := int(math.Floor(progress))
	frac := progress - float64(idx)

	for i := range cum {
		switch {
		case i < idx:
			out[i] = lo.ToPtr(cum[i])
		case i == idx:
			y0 := cum[idx]
			y1 := cum[min(idx+1, maxIdx)]
			y := y0
			if idx < maxIdx {
				y = y0 + (y1-y0)*frac
			}
			out[i] = lo.ToPtr(y)
		}
	}
	return out
}

// Merge combines the live bump, cumulative and progress series into one
// overlay per input point.
func Merge(points []domain.AnalyticsPoint, cursor int, progress float64) []domain.Overlay {
	live := LiveBump(points, cursor)
	cum := Cumulative(points)
	prog := Progress(cum, progress)

	out := make([]domain.Overlay, len(points))
	for i, p := range points {
		out[i] = domain.Overlay{
			AnalyticsPoint:  p,
			KWhLive:         live[i],
			KWhCum:          cum[i],
			KWhLiveProgress: prog[i],
		}
	}
	return out
}
