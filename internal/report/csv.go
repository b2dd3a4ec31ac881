// Package report exports analysis results as CSV, XLSX, and YAML
// artifacts and computes summary statistics for the run manifest.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

var localHeader = []string{"geoid", "local_i", "pseudo_p", "cluster"}

// WriteLocalCSV writes per-tract local results as CSV, one row per
// tract in input order.
func WriteLocalCSV(w io.Writer, locals []model.LocalResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(localHeader); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}

	for _, lr := range locals {
		row := []string{
			lr.GEOID,
			strconv.FormatFloat(lr.I, 'g', -1, 64),
			strconv.FormatFloat(lr.PseudoP, 'g', -1, 64),
			lr.Label.String(),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "report: write CSV row for %s", lr.GEOID)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush CSV")
	}
	return nil
}
