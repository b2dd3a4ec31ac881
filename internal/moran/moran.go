// Package moran computes global and local Moran's I point estimates
// from attribute values and a spatial weights matrix. Inference lives
// in the inference package; nothing here consumes randomness.
package moran

import (
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/urbanmetrics/lisa-cli/internal/ebayes"
	"github.com/urbanmetrics/lisa-cli/internal/weights"
)

// Deviations returns each value's deviation from the mean.
func Deviations(values []float64) []float64 {
	mean := stat.Mean(values, nil)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - mean
	}
	return out
}

// M2 returns the second moment of the deviations: Σ z² / n.
func M2(z []float64) float64 {
	var sq float64
	for _, v := range z {
		sq += v * v
	}
	return sq / float64(len(z))
}

// GlobalFromDeviations computes global Moran's I from precomputed
// deviations: I = (n/S0) · Σ_i z_i·lag_i / Σ_i z_i². Fails fast on
// island units (undefined spatial lag) and on zero variance.
func GlobalFromDeviations(z []float64, w *weights.Matrix) (float64, error) {
	if len(z) != w.N() {
		return 0, eris.Errorf("moran: %d values vs %d units", len(z), w.N())
	}
	if len(z) < 2 {
		return 0, eris.New("moran: need at least 2 units")
	}

	lags, err := w.Lag(z)
	if err != nil {
		return 0, err
	}

	var cross, sq float64
	for i, zi := range z {
		cross += zi * lags[i]
		sq += zi * zi
	}
	if sq == 0 {
		return 0, eris.New("moran: attribute has zero variance")
	}

	n := float64(len(z))
	return (n / w.S0()) * cross / sq, nil
}

// Global computes global Moran's I for raw attribute values.
func Global(values []float64, w *weights.Matrix) (float64, error) {
	return GlobalFromDeviations(Deviations(values), w)
}

// GlobalEB computes the rate-adjusted global Moran's I for event /
// population-at-risk pairs, measuring similarity on Assunção–Reis
// variance-stabilized transforms instead of raw rates.
func GlobalEB(events, populations []int64, w *weights.Matrix) (float64, error) {
	z, err := ebayes.Standardize(events, populations)
	if err != nil {
		return 0, err
	}
	// The transforms are re-centered here: Standardize divides by the
	// per-unit standard error but does not force a zero mean.
	return GlobalFromDeviations(Deviations(z), w)
}

// LocalFromDeviations computes local Moran's I for every unit from
// precomputed deviations: I_i = (z_i / m2) · Σ_j w_ij z_j with
// m2 = Σ z² / n. Under this scaling Σ_i I_i = S0 · I_global, a
// normalizing constant that depends only on the weights.
func LocalFromDeviations(z []float64, w *weights.Matrix) ([]float64, error) {
	if len(z) != w.N() {
		return nil, eris.Errorf("moran: %d values vs %d units", len(z), w.N())
	}

	m2 := M2(z)
	if m2 == 0 {
		return nil, eris.New("moran: attribute has zero variance")
	}

	lags, err := w.Lag(z)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(z))
	for i, zi := range z {
		out[i] = zi / m2 * lags[i]
	}
	return out, nil
}

// Local computes local Moran's I for raw attribute values.
func Local(values []float64, w *weights.Matrix) ([]float64, error) {
	return LocalFromDeviations(Deviations(values), w)
}

// ExpectedI returns the expected value of Moran's I under the null
// hypothesis of no spatial autocorrelation: -1/(n-1).
func ExpectedI(n int) float64 {
	return -1 / float64(n-1)
}
