package inference

import (
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/urbanmetrics/lisa-cli/internal/model"
	"github.com/urbanmetrics/lisa-cli/internal/moran"
	"github.com/urbanmetrics/lisa-cli/internal/weights"
)

// subseedMix is the splitmix64 increment, used to derive independent
// per-unit sub-streams from the run seed.
const subseedMix = 0x9e3779b97f4a7c15

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// globalRNG returns the deterministic stream for global permutations.
func globalRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), mix64(uint64(seed))))
}

// unitRNG derives unit i's conditional-permutation stream. The
// derivation depends only on (seed, i), so results are reproducible no
// matter how units are scheduled across workers.
func unitRNG(seed int64, i int) *rand.Rand {
	s := mix64(uint64(seed) + uint64(i+1)*subseedMix)
	return rand.New(rand.NewPCG(s, mix64(s)))
}

// pseudoP computes (count_as_or_more_extreme + 1) / (P + 1), counting
// simulated values from the tail the observed statistic falls in.
func pseudoP(observed float64, sims []float64) float64 {
	var above int
	for _, s := range sims {
		if s >= observed {
			above++
		}
	}
	count := above
	if below := len(sims) - above; below < count {
		count = below
	}
	return float64(count+1) / float64(len(sims)+1)
}

// Global estimates the pseudo p-value of the observed global Moran's I
// by uniform random reassignment of values across units. The observed
// statistic and simulated reference distribution are computed on the
// same deviations, since permutation leaves the mean unchanged.
func Global(values []float64, w *weights.Matrix, cfg Config) (model.GlobalResult, error) {
	if err := cfg.Validate(); err != nil {
		return model.GlobalResult{}, err
	}

	z := moran.Deviations(values)
	observed, err := moran.GlobalFromDeviations(z, w)
	if err != nil {
		return model.GlobalResult{}, err
	}

	rng := globalRNG(cfg.Seed)
	perm := make([]float64, len(z))
	copy(perm, z)

	sims := make([]float64, cfg.Permutations)
	for p := 0; p < cfg.Permutations; p++ {
		rng.Shuffle(len(perm), func(a, b int) {
			perm[a], perm[b] = perm[b], perm[a]
		})
		sim, err := moran.GlobalFromDeviations(perm, w)
		if err != nil {
			return model.GlobalResult{}, err
		}
		sims[p] = sim
	}

	return model.GlobalResult{
		I:            observed,
		Expected:     moran.ExpectedI(w.N()),
		PseudoP:      pseudoP(observed, sims),
		Permutations: cfg.Permutations,
		Seed:         cfg.Seed,
	}, nil
}

// localPValues runs conditional permutations for every unit: the focal
// unit's deviation is held fixed while neighbor values are drawn
// without replacement from the remaining n-1 deviations. Each unit
// consumes its own derived sub-stream and units run in parallel under
// an errgroup.
func localPValues(z []float64, observed []float64, w *weights.Matrix, cfg Config) ([]float64, error) {
	n := len(z)
	m2 := moran.M2(z)
	pvals := make([]float64, n)

	var g errgroup.Group
	g.SetLimit(cfg.workers())

	for i := 0; i < n; i++ {
		g.Go(func() error {
			card := w.Cardinality(i)
			if card == 0 {
				return weights.ErrIsland
			}

			rng := unitRNG(cfg.Seed, i)
			ws := w.Weights(i)

			// Pool of candidate deviations, focal unit removed.
			pool := make([]float64, 0, n-1)
			for j, v := range z {
				if j != i {
					pool = append(pool, v)
				}
			}

			// Scratch index array for partial Fisher-Yates draws.
			// Reusing the shuffled prefix between draws keeps each
			// k-subset uniform while costing O(k) per permutation.
			idx := make([]int, n-1)
			for j := range idx {
				idx[j] = j
			}

			sims := make([]float64, cfg.Permutations)
			for p := 0; p < cfg.Permutations; p++ {
				var lag float64
				for k := 0; k < card; k++ {
					swap := k + rng.IntN(n-1-k)
					idx[k], idx[swap] = idx[swap], idx[k]
					lag += ws[k] * pool[idx[k]]
				}
				sims[p] = z[i] / m2 * lag
			}

			pvals[i] = pseudoP(observed[i], sims)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pvals, nil
}
