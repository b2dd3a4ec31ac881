package report

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

// Manifest records everything needed to reproduce a run: parameters,
// dataset shape, and headline results.
type Manifest struct {
	RunID        string    `yaml:"run_id,omitempty"`
	CreatedAt    time.Time `yaml:"created_at"`
	Permutations int       `yaml:"permutations"`
	Seed         int64     `yaml:"seed"`
	Alpha        float64   `yaml:"alpha"`
	EBAdjusted   bool      `yaml:"eb_adjusted"`

	Tracts   int `yaml:"tracts"`
	Excluded int `yaml:"excluded"`

	MoranI       float64 `yaml:"moran_i"`
	ExpectedI    float64 `yaml:"expected_i"`
	PseudoP      float64 `yaml:"pseudo_p"`
	FDRThreshold float64 `yaml:"fdr_threshold"`

	Clusters map[string]int `yaml:"clusters"`

	SmoothedRates SummaryStats `yaml:"smoothed_rates"`
	PseudoPValues SummaryStats `yaml:"pseudo_p_values"`
}

// NewManifest assembles a manifest from a run's inputs and outputs.
func NewManifest(runID string, ds *model.Dataset, result *model.AnalysisResult, smoothedRates []float64, ebAdjusted bool) (*Manifest, error) {
	clusters := make(map[string]int)
	pvals := make([]float64, len(result.Locals))
	for i, lr := range result.Locals {
		clusters[lr.Label.String()]++
		pvals[i] = lr.PseudoP
	}

	rateStats, err := Summarize(smoothedRates)
	if err != nil {
		return nil, eris.Wrap(err, "report: summarize rates")
	}
	pStats, err := Summarize(pvals)
	if err != nil {
		return nil, eris.Wrap(err, "report: summarize p-values")
	}

	return &Manifest{
		RunID:         runID,
		CreatedAt:     time.Now().UTC(),
		Permutations:  result.Global.Permutations,
		Seed:          result.Global.Seed,
		Alpha:         result.Alpha,
		EBAdjusted:    ebAdjusted,
		Tracts:        len(ds.Tracts),
		Excluded:      len(ds.Excluded),
		MoranI:        result.Global.I,
		ExpectedI:     result.Global.Expected,
		PseudoP:       result.Global.PseudoP,
		FDRThreshold:  result.FDRThreshold,
		Clusters:      clusters,
		SmoothedRates: rateStats,
		PseudoPValues: pStats,
	}, nil
}

// WriteManifest writes the manifest as YAML.
func WriteManifest(w io.Writer, m *Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return eris.Wrap(err, "report: encode manifest")
	}
	return eris.Wrap(enc.Close(), "report: close manifest encoder")
}
