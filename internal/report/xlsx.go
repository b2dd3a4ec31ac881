package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

// WriteXLSX writes a workbook with a global summary sheet and a
// per-tract local results sheet.
func WriteXLSX(path string, result *model.AnalysisResult) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addKV := func(key string, value interface{}) {
		row := summary.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case float64:
			row.AddCell().SetFloat(v)
		case int:
			row.AddCell().SetInt(v)
		case int64:
			row.AddCell().SetInt64(v)
		default:
			row.AddCell().SetString(v.(string))
		}
	}

	addKV("Moran's I", result.Global.I)
	addKV("Expected I", result.Global.Expected)
	addKV("Pseudo p-value", result.Global.PseudoP)
	addKV("Permutations", result.Global.Permutations)
	addKV("Seed", result.Global.Seed)
	addKV("Alpha", result.Alpha)
	addKV("FDR threshold", result.FDRThreshold)
	addKV("Tracts", len(result.Locals))

	locals, err := f.AddSheet("Local Results")
	if err != nil {
		return eris.Wrap(err, "report: add locals sheet")
	}

	header := locals.AddRow()
	for _, h := range localHeader {
		header.AddCell().SetString(h)
	}

	for _, lr := range result.Locals {
		row := locals.AddRow()
		row.AddCell().SetString(lr.GEOID)
		row.AddCell().SetFloat(lr.I)
		row.AddCell().SetFloat(lr.PseudoP)
		row.AddCell().SetString(lr.Label.String())
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}
