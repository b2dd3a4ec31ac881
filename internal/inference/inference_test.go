package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmetrics/lisa-cli/internal/model"
	"github.com/urbanmetrics/lisa-cli/internal/weights"
)

func chainW(t *testing.T) *weights.Matrix {
	t.Helper()
	m, err := weights.FromAdjacency(
		[]string{"A", "B", "C", "D", "E"},
		map[string][]string{"A": {"B"}, "B": {"C"}, "C": {"D"}, "D": {"E"}},
	)
	require.NoError(t, err)
	return m.RowStandardize()
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"zero permutations", Config{Permutations: 0, Alpha: 0.05}, "permutation count must be positive"},
		{"negative permutations", Config{Permutations: -10, Alpha: 0.05}, "permutation count must be positive"},
		{"zero alpha", Config{Permutations: 99, Alpha: 0}, "alpha must be in"},
		{"alpha above one", Config{Permutations: 99, Alpha: 1.2}, "alpha must be in"},
		{"valid", Config{Permutations: 99, Alpha: 0.05}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPseudoP_Bounds(t *testing.T) {
	// Observed more extreme than every simulated value: smallest
	// attainable pseudo p-value is 1/(P+1).
	sims := []float64{0.1, 0.2, 0.3, 0.15}
	assert.InDelta(t, 1.0/5.0, pseudoP(0.9, sims), 1e-12)
	assert.InDelta(t, 1.0/5.0, pseudoP(-0.9, sims), 1e-12)

	// Observed in the middle: p is large but never exceeds 1.
	p := pseudoP(0.2, sims)
	assert.Greater(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

func TestGlobal_Deterministic(t *testing.T) {
	w := chainW(t)
	values := []float64{0.1, 0.12, 0.11, 0.48, 0.5}
	cfg := Config{Permutations: 999, Seed: 42, Alpha: 0.05}

	r1, err := Global(values, w, cfg)
	require.NoError(t, err)
	r2, err := Global(values, w, cfg)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Positive(t, r1.I)
	assert.Greater(t, r1.PseudoP, 0.0)
	assert.LessOrEqual(t, r1.PseudoP, 1.0)
	assert.Equal(t, 999, r1.Permutations)
	assert.Equal(t, int64(42), r1.Seed)
}

func TestGlobal_SeedChangesReferenceDistribution(t *testing.T) {
	w := chainW(t)
	values := []float64{0.1, 0.12, 0.11, 0.48, 0.5}

	r1, err := Global(values, w, Config{Permutations: 99, Seed: 1, Alpha: 0.05})
	require.NoError(t, err)
	r2, err := Global(values, w, Config{Permutations: 99, Seed: 2, Alpha: 0.05})
	require.NoError(t, err)

	// Point estimate never depends on the seed.
	assert.Equal(t, r1.I, r2.I)
}

func TestGlobal_RejectsInvalidConfig(t *testing.T) {
	w := chainW(t)
	_, err := Global([]float64{1, 2, 3, 4, 5}, w, Config{Permutations: 0, Alpha: 0.05})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permutation count")
}

func TestFDRThreshold(t *testing.T) {
	// n=4, alpha=0.05: steps are 0.0125, 0.025, 0.0375, 0.05.
	pvals := []float64{0.01, 0.02, 0.30, 0.70}
	got := FDRThreshold(pvals, 0.05)
	assert.InDelta(t, 0.02, got, 1e-12)

	// No p-value under its step: threshold degenerates to 0.
	assert.Zero(t, FDRThreshold([]float64{0.5, 0.6, 0.9}, 0.05))

	// Empty family.
	assert.Zero(t, FDRThreshold(nil, 0.05))
}

func TestFDRThreshold_BoundedByAlphaAndMonotone(t *testing.T) {
	pvals := []float64{0.001, 0.008, 0.02, 0.04, 0.2, 0.6}

	prev := 0.0
	for _, alpha := range []float64{0.01, 0.05, 0.10, 0.25, 0.5} {
		th := FDRThreshold(pvals, alpha)
		assert.LessOrEqual(t, th, alpha)
		assert.GreaterOrEqual(t, th, prev, "alpha %g", alpha)
		prev = th
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		z, lagZ   float64
		pval, thr float64
		want      model.ClusterLabel
	}{
		{"high-high", 1, 1, 0.01, 0.05, model.HighHigh},
		{"low-low", -1, -1, 0.01, 0.05, model.LowLow},
		{"low-high", -1, 1, 0.01, 0.05, model.LowHigh},
		{"high-low", 1, -1, 0.01, 0.05, model.HighLow},
		{"insignificant", 1, 1, 0.2, 0.05, model.Insignificant},
		{"zero threshold blocks everything", 1, 1, 0.001, 0, model.Insignificant},
		{"zero deviation is low side", 0, 1, 0.01, 0.05, model.LowHigh},
		{"zero lag is low side", 1, 0, 0.01, 0.05, model.HighLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.z, tt.lagZ, tt.pval, tt.thr))
		})
	}
}

func TestLocalPValues_DeterministicAcrossWorkerCounts(t *testing.T) {
	w := chainW(t)
	z := []float64{-0.2, -0.18, -0.19, 0.28, 0.29}
	observed := []float64{0.5, 0.4, 0.1, 0.6, 0.7}

	p1, err := localPValues(z, observed, w, Config{Permutations: 499, Seed: 7, Alpha: 0.05, Workers: 1})
	require.NoError(t, err)
	p4, err := localPValues(z, observed, w, Config{Permutations: 499, Seed: 7, Alpha: 0.05, Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, p1, p4)
	for i, p := range p1 {
		assert.Greater(t, p, 0.0, "unit %d", i)
		assert.LessOrEqual(t, p, 1.0, "unit %d", i)
	}
}

func chainDataset() *model.Dataset {
	return &model.Dataset{Tracts: []model.Tract{
		{GEOID: "A", Events: 10, Population: 100},
		{GEOID: "B", Events: 12, Population: 100},
		{GEOID: "C", Events: 11, Population: 100},
		{GEOID: "D", Events: 48, Population: 100},
		{GEOID: "E", Events: 50, Population: 100},
	}}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	w := chainW(t)
	cfg := Config{Permutations: 999, Seed: 42, Alpha: 0.05}

	res, err := Analyze(chainDataset(), w, cfg)
	require.NoError(t, err)

	// Low block next to low, high block next to high: clustering.
	assert.Positive(t, res.Global.I)
	require.Len(t, res.Locals, 5)

	for i, id := range []string{"A", "B", "C", "D", "E"} {
		assert.Equal(t, id, res.Locals[i].GEOID)
		assert.Greater(t, res.Locals[i].PseudoP, 0.0)
		assert.LessOrEqual(t, res.Locals[i].PseudoP, 1.0)
	}

	// Every significant label carries a non-Insignificant cluster and
	// respects the threshold; everything else is Insignificant.
	for _, l := range res.Locals {
		if l.PseudoP <= res.FDRThreshold {
			assert.NotEqual(t, model.Insignificant, l.Label)
		} else {
			assert.Equal(t, model.Insignificant, l.Label)
		}
	}
}

func TestAnalyze_BitIdenticalAcrossRuns(t *testing.T) {
	w := chainW(t)
	cfg := Config{Permutations: 499, Seed: 2026, Alpha: 0.05, Workers: 3}

	r1, err := Analyze(chainDataset(), w, cfg)
	require.NoError(t, err)
	r2, err := Analyze(chainDataset(), w, cfg)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestAnalyze_EBAdjustedVariant(t *testing.T) {
	w := chainW(t)
	cfg := Config{Permutations: 499, Seed: 42, Alpha: 0.05, EBAdjusted: true}

	res, err := Analyze(chainDataset(), w, cfg)
	require.NoError(t, err)
	assert.Positive(t, res.Global.I)
}

func TestAnalyze_RejectsIslands(t *testing.T) {
	m, err := weights.FromAdjacency(
		[]string{"A", "B", "X"},
		map[string][]string{"A": {"B"}},
	)
	require.NoError(t, err)

	ds := &model.Dataset{Tracts: []model.Tract{
		{GEOID: "A", Events: 1, Population: 10},
		{GEOID: "B", Events: 2, Population: 10},
		{GEOID: "X", Events: 3, Population: 10},
	}}

	_, err = Analyze(ds, m.RowStandardize(), Config{Permutations: 99, Seed: 1, Alpha: 0.05})
	require.Error(t, err)
	assert.ErrorIs(t, err, weights.ErrIsland)
}

func TestAnalyze_RejectsZeroPermutations(t *testing.T) {
	w := chainW(t)
	_, err := Analyze(chainDataset(), w, Config{Permutations: 0, Seed: 1, Alpha: 0.05})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permutation count must be positive")
}

func TestAnalyze_SizeMismatch(t *testing.T) {
	w := chainW(t)
	ds := &model.Dataset{Tracts: []model.Tract{{GEOID: "A", Events: 1, Population: 10}}}
	_, err := Analyze(ds, w, Config{Permutations: 99, Seed: 1, Alpha: 0.05})
	require.Error(t, err)
}
