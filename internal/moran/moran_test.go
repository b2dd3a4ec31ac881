package moran

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmetrics/lisa-cli/internal/weights"
)

// chainW builds a row-standardized A-B-C-D-E chain.
func chainW(t *testing.T) *weights.Matrix {
	t.Helper()
	m, err := weights.FromAdjacency(
		[]string{"A", "B", "C", "D", "E"},
		map[string][]string{"A": {"B"}, "B": {"C"}, "C": {"D"}, "D": {"E"}},
	)
	require.NoError(t, err)
	return m.RowStandardize()
}

func TestGlobal_ClusteredValuesArePositive(t *testing.T) {
	w := chainW(t)
	i, err := Global([]float64{1, 1, 1, 5, 5}, w)
	require.NoError(t, err)
	assert.Positive(t, i)
}

func TestGlobal_CheckerboardIsNegative(t *testing.T) {
	w := chainW(t)
	i, err := Global([]float64{1, 5, 1, 5, 1}, w)
	require.NoError(t, err)
	assert.Less(t, i, ExpectedI(w.N()))
}

func TestGlobal_ZeroVariance(t *testing.T) {
	w := chainW(t)
	_, err := Global([]float64{3, 3, 3, 3, 3}, w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero variance")
}

func TestGlobal_LengthMismatch(t *testing.T) {
	w := chainW(t)
	_, err := Global([]float64{1, 2}, w)
	require.Error(t, err)
}

func TestGlobal_IslandFailsFast(t *testing.T) {
	m, err := weights.FromAdjacency(
		[]string{"A", "B", "X"},
		map[string][]string{"A": {"B"}},
	)
	require.NoError(t, err)

	_, err = Global([]float64{1, 2, 3}, m.RowStandardize())
	require.Error(t, err)
	assert.ErrorIs(t, err, weights.ErrIsland)
}

func TestLocal_SumProportionalToGlobal(t *testing.T) {
	// Sum of local statistics equals S0 times the global statistic;
	// the constant is independent of the data values.
	w := chainW(t)
	for _, values := range [][]float64{
		{1, 1, 1, 5, 5},
		{1, 5, 1, 5, 1},
		{2.5, -3, 0.7, 11, 4},
	} {
		global, err := Global(values, w)
		require.NoError(t, err)
		locals, err := Local(values, w)
		require.NoError(t, err)

		var sum float64
		for _, l := range locals {
			sum += l
		}
		assert.InDelta(t, w.S0()*global, sum, 1e-9)
	}
}

func TestLocal_SignMatchesNeighborhood(t *testing.T) {
	w := chainW(t)
	locals, err := Local([]float64{1, 1, 1, 5, 5}, w)
	require.NoError(t, err)

	// A sits below the mean next to a below-mean neighbor: positive
	// association. E sits above the mean next to an above-mean
	// neighbor: positive as well.
	assert.Positive(t, locals[0])
	assert.Positive(t, locals[4])
}

func TestGlobalEB_RateAdjustedVariant(t *testing.T) {
	w := chainW(t)

	// Clustered rates: low block then high block.
	events := []int64{10, 12, 11, 50, 48}
	populations := []int64{100, 100, 100, 100, 100}

	i, err := GlobalEB(events, populations, w)
	require.NoError(t, err)
	assert.Positive(t, i)
}

func TestGlobalEB_ZeroRates(t *testing.T) {
	w := chainW(t)
	_, err := GlobalEB([]int64{0, 0, 0, 0, 0}, []int64{10, 10, 10, 10, 10}, w)
	require.Error(t, err)
}

func TestExpectedI(t *testing.T) {
	assert.InDelta(t, -0.25, ExpectedI(5), 1e-12)
	assert.InDelta(t, -0.01, ExpectedI(101), 1e-12)
}

func TestDeviationsAndM2(t *testing.T) {
	z := Deviations([]float64{2, 4, 6})
	assert.InDelta(t, -2, z[0], 1e-12)
	assert.InDelta(t, 0, z[1], 1e-12)
	assert.InDelta(t, 2, z[2], 1e-12)
	assert.InDelta(t, 8.0/3.0, M2(z), 1e-12)
}
