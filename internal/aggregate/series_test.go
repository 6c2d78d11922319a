package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milad/smartmeter/internal/domain"
)

func points(kwh ...float64) []domain.AnalyticsPoint {
	out := make([]domain.AnalyticsPoint, len(kwh))
	for i, v := range kwh {
		out[i] = domain.AnalyticsPoint{Period: string(rune('a' + i)), KWh: v, Cost: v * 0.18}
	}
	return out
}

func TestBumpFactor_PeaksAtCursorAndFades(t *testing.T) {
	t.Parallel()

	const cursor = 6
	assert.Equal(t, 1.0, BumpFactor(cursor, cursor))
	assert.Equal(t, 0.75, BumpFactor(cursor-1, cursor))
	assert.Equal(t, 0.0, BumpFactor(cursor-4, cursor))
	assert.Equal(t, 0.0, BumpFactor(cursor-5, cursor))
	assert.Equal(t, 0.0, BumpFactor(cursor+1, cursor))
}

func TestLiveBump(t *testing.T) {
	t.Parallel()

	in := points(10, 10, 10, 10)
	got := LiveBump(in, 2)
	require.Len(t, got, 4)
	assert.InDelta(t, 10*(1+0.08*0.75), got[1], 1e-12)
	assert.InDelta(t, 10.8, got[2], 1e-12)
	assert.Equal(t, 10.0, got[3])
	assert.Equal(t, 10.0, in[2].KWh, "input must not be mutated")
}

func TestBumpCursor_Wraps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, BumpCursor(12, 4))
	assert.Equal(t, 3, BumpCursor(7, 4))
	assert.Equal(t, 3, BumpCursor(-1, 4))
	assert.Equal(t, 0, BumpCursor(5, 0))
}

func TestCumulative_NonDecreasing(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	in := make([]domain.AnalyticsPoint, 50)
	for i := range in {
		in[i].KWh = rng.Float64() * 20
	}
	cum := Cumulative(in)
	require.Len(t, cum, len(in))
	for i := 1; i < len(cum); i++ {
		assert.GreaterOrEqual(t, cum[i], cum[i-1])
	}
}

func TestProgress_IntegerAndHalfSteps(t *testing.T) {
	t.Parallel()

	cum := Cumulative(points(1, 2, 3, 4))

	at2 := Progress(cum, 2)
	require.NotNil(t, at2[2])
	assert.Equal(t, cum[2], *at2[2])
	assert.Equal(t, cum[0], *at2[0])
	assert.Nil(t, at2[3])

	half := Progress(cum, 1.5)
	require.NotNil(t, half[1])
	assert.InDelta(t, (cum[1]+cum[2])/2, *half[1], 1e-12)
	assert.Nil(t, half[2])

	last := Progress(cum, 3)
	require.NotNil(t, last[3])
	assert.Equal(t, cum[3], *last[3])
}

func TestMerge_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Merge(nil, 3, 1.2))
	assert.Empty(t, Progress(nil, 0.4))
	assert.Empty(t, Cumulative(nil))
}

func TestMerge_CombinesSeries(t *testing.T) {
	t.Parallel()

	in := points(2, 4, 6)
	out := Merge(in, 1, 0.5)
	require.Len(t, out, 3)

	assert.Equal(t, in[0], out[0].AnalyticsPoint)
	assert.Equal(t, []float64{2, 6, 12}, []float64{out[0].KWhCum, out[1].KWhCum, out[2].KWhCum})
	assert.InDelta(t, 4*1.08, out[1].KWhLive, 1e-12)
	require.NotNil(t, out[0].KWhLiveProgress)
	assert.InDelta(t, 4.0, *out[0].KWhLiveProgress, 1e-12)
	assert.Nil(t, out[1].KWhLiveProgress)
}
