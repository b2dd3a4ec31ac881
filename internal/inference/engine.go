package inference

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanmetrics/lisa-cli/internal/ebayes"
	"github.com/urbanmetrics/lisa-cli/internal/model"
	"github.com/urbanmetrics/lisa-cli/internal/moran"
	"github.com/urbanmetrics/lisa-cli/internal/weights"
)

// Analyze runs the full estimation and inference pipeline over a
// dataset and its weights matrix: Empirical Bayes smoothing, global
// Moran's I with permutation inference, per-unit local Moran's I with
// conditional permutation inference, FDR correction, and cluster
// labeling. The dataset must already have zero-population units
// excluded, and the matrix must be island-free; both are caller
// decisions this function refuses to make silently.
func Analyze(ds *model.Dataset, w *weights.Matrix, cfg Config) (*model.AnalysisResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(ds.Tracts) != w.N() {
		return nil, eris.Errorf("inference: dataset has %d tracts, weights matrix has %d units", len(ds.Tracts), w.N())
	}
	if islands := w.Islands(); len(islands) > 0 {
		return nil, eris.Wrapf(weights.ErrIsland,
			"inference: %d unit(s) without neighbors, exclude before analysis", len(islands))
	}

	events := ds.EventCounts()
	populations := ds.Populations()

	smoothed, err := ebayes.Smooth(events, populations)
	if err != nil {
		return nil, err
	}

	// Global statistic: rate-adjusted variant standardizes the raw
	// event/population pairs; otherwise the smoothed rates are used.
	globalValues := smoothed.Rates
	if cfg.EBAdjusted {
		globalValues, err = ebayes.Standardize(events, populations)
		if err != nil {
			return nil, err
		}
	}
	global, err := Global(globalValues, w, cfg)
	if err != nil {
		return nil, err
	}

	// Local statistics are computed on the smoothed rates.
	z := moran.Deviations(smoothed.Rates)
	observed, err := moran.LocalFromDeviations(z, w)
	if err != nil {
		return nil, err
	}
	lagZ, err := w.Lag(z)
	if err != nil {
		return nil, err
	}

	pvals, err := localPValues(z, observed, w, cfg)
	if err != nil {
		return nil, err
	}

	threshold := FDRThreshold(pvals, cfg.Alpha)

	locals := make([]model.LocalResult, len(observed))
	significant := 0
	for i := range observed {
		label := classify(z[i], lagZ[i], pvals[i], threshold)
		if label != model.Insignificant {
			significant++
		}
		locals[i] = model.LocalResult{
			GEOID:   ds.Tracts[i].GEOID,
			I:       observed[i],
			PseudoP: pvals[i],
			Label:   label,
		}
	}

	zap.L().Info("inference: analysis complete",
		zap.Int("units", len(locals)),
		zap.Float64("global_i", global.I),
		zap.Float64("global_p", global.PseudoP),
		zap.Float64("fdr_threshold", threshold),
		zap.Int("significant", significant),
	)

	return &model.AnalysisResult{
		Global:       global,
		Locals:       locals,
		FDRThreshold: threshold,
		Alpha:        cfg.Alpha,
	}, nil
}
