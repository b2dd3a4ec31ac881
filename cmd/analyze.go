package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanmetrics/lisa-cli/internal/dataset"
	"github.com/urbanmetrics/lisa-cli/internal/ebayes"
	"github.com/urbanmetrics/lisa-cli/internal/inference"
	"github.com/urbanmetrics/lisa-cli/internal/model"
	"github.com/urbanmetrics/lisa-cli/internal/report"
	"github.com/urbanmetrics/lisa-cli/internal/weights"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full spatial autocorrelation analysis and write result artifacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		in, _ := cmd.Flags().GetString("dataset")
		outDir, _ := cmd.Flags().GetString("out-dir")
		permutations, _ := cmd.Flags().GetInt("permutations")
		seed, _ := cmd.Flags().GetInt64("seed")
		alpha, _ := cmd.Flags().GetFloat64("alpha")
		ebAdjusted, _ := cmd.Flags().GetBool("eb-adjusted")
		dropIslands, _ := cmd.Flags().GetBool("drop-islands")

		// Config supplies defaults; explicit flags win.
		if !cmd.Flags().Changed("permutations") {
			permutations = cfg.Analysis.Permutations
		}
		if !cmd.Flags().Changed("seed") {
			seed = cfg.Analysis.Seed
		}
		if !cmd.Flags().Changed("alpha") {
			alpha = cfg.Analysis.Alpha
		}
		if !cmd.Flags().Changed("eb-adjusted") {
			ebAdjusted = cfg.Analysis.EBAdjusted
		}
		if outDir == "" {
			outDir = cfg.Output.Dir
		}

		params := model.AnalysisParams{
			Permutations: permutations,
			Seed:         seed,
			Alpha:        alpha,
			EBAdjusted:   ebAdjusted,
			Dataset:      in,
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, params)
		if err != nil {
			return err
		}
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			return err
		}

		result, ds, err := runAnalysis(in, params, dropIslands)
		if err != nil {
			if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
				zap.L().Error("failed to record run failure", zap.Error(failErr))
			}
			return err
		}

		if err := writeArtifacts(run.ID, outDir, ds, result, ebAdjusted); err != nil {
			if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
				zap.L().Error("failed to record run failure", zap.Error(failErr))
			}
			return err
		}

		if err := st.UpdateRunResult(ctx, run.ID, result); err != nil {
			return err
		}

		report.PrintSummary(os.Stdout, result)
		return nil
	},
}

// runAnalysis loads the dataset, builds weights, and runs estimation and
// inference. Islands fail the run unless dropIslands excludes them.
func runAnalysis(path string, params model.AnalysisParams, dropIslands bool) (*model.AnalysisResult, *model.Dataset, error) {
	ds, err := dataset.LoadGeoJSON(path)
	if err != nil {
		return nil, nil, err
	}

	w, err := weights.BuildQueen(ds.Tracts)
	if err != nil {
		return nil, nil, err
	}

	if islands := w.Islands(); len(islands) > 0 {
		if !dropIslands {
			names := make([]string, len(islands))
			for k, i := range islands {
				names[k] = ds.Tracts[i].GEOID
			}
			return nil, nil, eris.Wrapf(weights.ErrIsland,
				"%d tract(s) have no neighbors (%v); rerun with --drop-islands to exclude them", len(islands), names)
		}
		ds, w = excludeIslands(ds, w, islands)
	}

	result, err := inference.Analyze(ds, w.RowStandardize(), inference.Config{
		Permutations: params.Permutations,
		Seed:         params.Seed,
		Alpha:        params.Alpha,
		EBAdjusted:   params.EBAdjusted,
		Workers:      cfg.Analysis.Workers,
	})
	if err != nil {
		return nil, nil, err
	}
	return result, ds, nil
}

// excludeIslands removes island tracts from both the dataset and the
// weights matrix, recording each exclusion.
func excludeIslands(ds *model.Dataset, w *weights.Matrix, islands []int) (*model.Dataset, *weights.Matrix) {
	isIsland := make(map[int]bool, len(islands))
	for _, i := range islands {
		isIsland[i] = true
	}

	out := &model.Dataset{Excluded: ds.Excluded}
	var keep []int
	for i, t := range ds.Tracts {
		if isIsland[i] {
			out.Excluded = append(out.Excluded, model.Exclusion{GEOID: t.GEOID, Reason: model.ExcludeIsland})
			continue
		}
		out.Tracts = append(out.Tracts, t)
		keep = append(keep, i)
	}

	zap.L().Warn("islands excluded from analysis", zap.Int("count", len(islands)))
	return out, w.Subset(keep)
}

// writeArtifacts writes the CSV, XLSX, GeoJSON, and manifest outputs.
func writeArtifacts(runID, outDir string, ds *model.Dataset, result *model.AnalysisResult, ebAdjusted bool) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return eris.Wrap(err, "create output dir")
	}

	csvFile, err := os.Create(filepath.Join(outDir, "locals.csv"))
	if err != nil {
		return eris.Wrap(err, "create locals.csv")
	}
	defer csvFile.Close() //nolint:errcheck
	if err := report.WriteLocalCSV(csvFile, result.Locals); err != nil {
		return err
	}

	if err := report.WriteXLSX(filepath.Join(outDir, "results.xlsx"), result); err != nil {
		return err
	}

	geoFile, err := os.Create(filepath.Join(outDir, "results.geojson"))
	if err != nil {
		return eris.Wrap(err, "create results.geojson")
	}
	defer geoFile.Close() //nolint:errcheck
	if err := dataset.WriteGeoJSON(geoFile, ds, result.Locals); err != nil {
		return err
	}

	smoothed, err := ebayes.Smooth(ds.EventCounts(), ds.Populations())
	if err != nil {
		return err
	}
	manifest, err := report.NewManifest(runID, ds, result, smoothed.Rates, ebAdjusted)
	if err != nil {
		return err
	}
	manFile, err := os.Create(filepath.Join(outDir, "run.yaml"))
	if err != nil {
		return eris.Wrap(err, "create run.yaml")
	}
	defer manFile.Close() //nolint:errcheck
	if err := report.WriteManifest(manFile, manifest); err != nil {
		return err
	}

	zap.L().Info("artifacts written", zap.String("dir", outDir), zap.String("run_id", runID))
	return nil
}

func init() {
	analyzeCmd.Flags().String("dataset", "out/dataset.geojson", "input dataset GeoJSON")
	analyzeCmd.Flags().String("out-dir", "", "artifact output directory (default from config)")
	analyzeCmd.Flags().Int("permutations", 999, "number of permutations")
	analyzeCmd.Flags().Int64("seed", 42, "RNG seed for reproducible inference")
	analyzeCmd.Flags().Float64("alpha", 0.05, "significance level for FDR correction")
	analyzeCmd.Flags().Bool("eb-adjusted", false, "use the rate-adjusted global Moran variant")
	analyzeCmd.Flags().Bool("drop-islands", false, "exclude tracts with no neighbors instead of failing")
	rootCmd.AddCommand(analyzeCmd)
}
