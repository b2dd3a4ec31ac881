// Package inference derives pseudo p-values for Moran statistics from
// seeded random permutations, applies a false-discovery-rate correction
// across units, and assigns cluster labels. Identical input, seed, and
// permutation count reproduce bit-identical output regardless of the
// worker count.
package inference

import (
	"runtime"

	"github.com/rotisserie/eris"
)

// Config holds inference parameters. Permutations and Alpha are
// validated before any computation begins; an invalid configuration is
// fatal to the run.
type Config struct {
	Permutations int
	Seed         int64
	Alpha        float64
	// EBAdjusted selects the rate-adjusted global variant, which
	// measures similarity on variance-stabilized transforms of the raw
	// event/population pairs instead of the smoothed rates.
	EBAdjusted bool
	// Workers caps parallelism across units for local inference.
	// Zero means GOMAXPROCS.
	Workers int
}

// Validate rejects invalid configurations.
func (c Config) Validate() error {
	if c.Permutations <= 0 {
		return eris.Errorf("inference: permutation count must be positive, got %d", c.Permutations)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return eris.Errorf("inference: alpha must be in (0, 1], got %g", c.Alpha)
	}
	return nil
}

// workers resolves the effective worker count.
func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
