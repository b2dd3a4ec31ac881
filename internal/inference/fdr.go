package inference

import "sort"

// FDRThreshold computes the Benjamini-Hochberg adjusted critical
// p-value for a family of n tests at level alpha: the largest p_(k)
// with p_(k) <= (k/n)·alpha. Returns 0 when no p-value qualifies,
// meaning no unit is declared significant.
func FDRThreshold(pvals []float64, alpha float64) float64 {
	n := len(pvals)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, pvals)
	sort.Float64s(sorted)

	threshold := 0.0
	for k := n; k >= 1; k-- {
		if sorted[k-1] <= float64(k)/float64(n)*alpha {
			threshold = sorted[k-1]
			break
		}
	}
	return threshold
}
