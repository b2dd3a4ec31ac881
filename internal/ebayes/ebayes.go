// Package ebayes implements Empirical Bayes rate smoothing: shrinking
// noisy per-unit event rates toward the global rate, weighted by each
// unit's population at risk.
package ebayes

import (
	"github.com/rotisserie/eris"
)

// Smoothed holds the output of one smoothing pass.
type Smoothed struct {
	Rates      []float64 // per-unit smoothed rates, input order
	GlobalRate float64
	BetweenVar float64 // method-of-moments between-area variance (may be negative before clamping)
}

// Smooth computes Empirical Bayes smoothed rates from per-unit
// (event, population) pairs. Zero-population units must already be
// excluded; their presence is a configuration error.
//
// The between-area variance component is estimated by method of
// moments: the population-weighted dispersion of raw rates around the
// global rate, net of the expected sampling variance. When that
// estimate is non-positive (rates are homogeneous), shrinkage
// saturates at 1 and every smoothed rate equals the global rate.
func Smooth(events, populations []int64) (*Smoothed, error) {
	if len(events) != len(populations) {
		return nil, eris.Errorf("ebayes: %d event counts vs %d populations", len(events), len(populations))
	}
	if len(events) == 0 {
		return nil, eris.New("ebayes: empty input")
	}

	var sumEvents, sumPop int64
	for i := range events {
		if populations[i] <= 0 {
			return nil, eris.Errorf("ebayes: unit %d has population %d; exclude before smoothing", i, populations[i])
		}
		if events[i] < 0 {
			return nil, eris.Errorf("ebayes: unit %d has negative event count %d", i, events[i])
		}
		if events[i] > populations[i] {
			return nil, eris.Errorf("ebayes: unit %d has events %d > population %d", i, events[i], populations[i])
		}
		sumEvents += events[i]
		sumPop += populations[i]
	}

	n := float64(len(events))
	globalRate := float64(sumEvents) / float64(sumPop)
	meanPop := float64(sumPop) / n

	// Population-weighted dispersion of raw rates around the global rate.
	var weightedSq float64
	for i := range events {
		r := float64(events[i]) / float64(populations[i])
		d := r - globalRate
		weightedSq += float64(populations[i]) * d * d
	}
	betweenVar := weightedSq/float64(sumPop) - globalRate/meanPop

	rates := make([]float64, len(events))
	for i := range events {
		raw := float64(events[i]) / float64(populations[i])
		// Per-unit expected sampling variance of the rate.
		samplingVar := globalRate / float64(populations[i])

		var shrink float64
		if betweenVar <= 0 {
			shrink = 1
		} else {
			shrink = samplingVar / (samplingVar + betweenVar)
		}
		rates[i] = raw*(1-shrink) + globalRate*shrink
	}

	return &Smoothed{
		Rates:      rates,
		GlobalRate: globalRate,
		BetweenVar: betweenVar,
	}, nil
}
