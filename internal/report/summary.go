package report

import (
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

// SummaryStats describes a distribution with the usual five-ish numbers.
type SummaryStats struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"std_dev"`
	Min    float64 `yaml:"min"`
	Q25    float64 `yaml:"q25"`
	Median float64 `yaml:"median"`
	Q75    float64 `yaml:"q75"`
	Max    float64 `yaml:"max"`
}

// Summarize computes summary statistics for a sample.
func Summarize(data []float64) (SummaryStats, error) {
	if len(data) == 0 {
		return SummaryStats{}, eris.New("report: empty sample")
	}

	var s SummaryStats
	var err error

	if s.Mean, err = stats.Mean(data); err != nil {
		return s, eris.Wrap(err, "report: mean")
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, eris.Wrap(err, "report: std dev")
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, eris.Wrap(err, "report: min")
	}
	if s.Q25, err = stats.Percentile(data, 25); err != nil {
		return s, eris.Wrap(err, "report: q25")
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, eris.Wrap(err, "report: median")
	}
	if s.Q75, err = stats.Percentile(data, 75); err != nil {
		return s, eris.Wrap(err, "report: q75")
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, eris.Wrap(err, "report: max")
	}

	return s, nil
}

// PrintSummary writes a human-readable run summary. Counts are printed
// with locale-aware grouping so large tract and permutation counts stay
// readable.
func PrintSummary(w io.Writer, result *model.AnalysisResult) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Global Moran's I: %.4f (expected %.4f, pseudo p = %.4f)\n",
		result.Global.I, result.Global.Expected, result.Global.PseudoP)
	p.Fprintf(w, "Permutations: %d (seed %d)\n",
		result.Global.Permutations, result.Global.Seed)
	p.Fprintf(w, "FDR threshold at alpha %.2f: %.4g\n", result.Alpha, result.FDRThreshold)

	counts := make(map[model.ClusterLabel]int)
	for _, lr := range result.Locals {
		counts[lr.Label]++
	}
	p.Fprintf(w, "Tracts: %d\n", len(result.Locals))
	for _, label := range []model.ClusterLabel{model.HighHigh, model.LowLow, model.LowHigh, model.HighLow, model.Insignificant} {
		if counts[label] > 0 {
			fmt.Fprintf(w, "  %-13s %d\n", label.String(), counts[label])
		}
	}
}
