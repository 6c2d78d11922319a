package tariff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTariff_CostRoundsToFourPlaces(t *testing.T) {
	t.Parallel()

	tr := MustNew(DefaultRate)
	assert.Equal(t, 0.18, tr.Rate())
	assert.Equal(t, 0.2222, tr.Cost(1.23456))
	assert.Equal(t, 0.0, tr.Cost(0))
}

func TestTariff_CostOfSumsPerReading(t *testing.T) {
	t.Parallel()

	tr := MustNew(DefaultRate)
	assert.Equal(t, 0.675, tr.CostOf([]float64{1.25, 2.5}))
	assert.Equal(t, 0.0, tr.CostOf(nil))
	assert.Equal(t, 0.3, MustNew(1).CostOf([]float64{0.1, 0.2}))
}

func TestNew_RejectsInvalidRates(t *testing.T) {
	t.Parallel()

	_, err := New(-1)
	require.Error(t, err)
	_, err = New(math.NaN())
	require.Error(t, err)
}

func TestDetectAnomaly(t *testing.T) {
	t.Parallel()

	spike, note := DetectAnomaly(5.2)
	assert.True(t, spike)
	assert.Equal(t, "High usage spike", note)

	spike, note = DetectAnomaly(5)
	assert.False(t, spike)
	assert.Empty(t, note)
}

func TestRound2(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 42.35, Round2(42.3549))
}
