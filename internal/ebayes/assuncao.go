package ebayes

import (
	"math"

	"github.com/rotisserie/eris"
)

// Standardize returns Assunção–Reis variance-stabilized deviations for
// rate data: per-unit (raw_rate − global_rate) / sqrt(between_var +
// global_rate/population). Differing populations at risk make raw rates
// heteroscedastic; dividing by the per-unit standard error corrects the
// attribute-similarity term of rate-based Moran's I.
//
// A non-positive between-area variance estimate is clamped to zero, the
// same saturation rule Smooth applies.
func Standardize(events, populations []int64) ([]float64, error) {
	sm, err := Smooth(events, populations)
	if err != nil {
		return nil, err
	}
	if sm.GlobalRate <= 0 {
		return nil, eris.New("ebayes: global rate is zero, rates carry no variation to standardize")
	}

	betweenVar := sm.BetweenVar
	if betweenVar < 0 {
		betweenVar = 0
	}

	out := make([]float64, len(events))
	for i := range events {
		raw := float64(events[i]) / float64(populations[i])
		v := betweenVar + sm.GlobalRate/float64(populations[i])
		out[i] = (raw - sm.GlobalRate) / math.Sqrt(v)
	}
	return out, nil
}
