package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urbanmetrics/lisa-cli/internal/census"
	"github.com/urbanmetrics/lisa-cli/internal/dataset"
	"github.com/urbanmetrics/lisa-cli/internal/tiger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch ACS counts and TIGER geometries and write the dataset artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		state, _ := cmd.Flags().GetString("state")
		county, _ := cmd.Flags().GetString("county")
		out, _ := cmd.Flags().GetString("out")
		allowMissing, _ := cmd.Flags().GetBool("allow-missing-geometry")

		if state == "" || county == "" {
			return eris.New("--state and --county FIPS codes are required")
		}
		if out == "" {
			out = filepath.Join(cfg.Output.Dir, "dataset.geojson")
		}

		client := census.NewClient(census.Options{
			APIKey:     cfg.Census.APIKey,
			Year:       cfg.Census.Year,
			Dataset:    cfg.Census.Dataset,
			MaxRetries: cfg.Census.MaxRetries,
		})
		counts, err := client.TractCounts(ctx, state, county, cfg.Census.EventVars, cfg.Census.PopVar)
		if err != nil {
			return err
		}

		geoms, err := tiger.LoadTracts(ctx, tiger.LoadOptions{
			Year:        cfg.Tiger.Year,
			StateFIPS:   []string{state},
			TempDir:     cfg.Tiger.TempDir,
			Concurrency: cfg.Tiger.Concurrency,
		})
		if err != nil {
			return err
		}

		ds, err := dataset.Join(counts, geoms, dataset.JoinOptions{AllowMissingGeometry: allowMissing})
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close() //nolint:errcheck

		if err := dataset.WriteGeoJSON(f, ds, nil); err != nil {
			return err
		}

		zap.L().Info("dataset written",
			zap.String("path", out),
			zap.Int("tracts", len(ds.Tracts)),
			zap.Int("excluded", len(ds.Excluded)),
		)
		fmt.Printf("Wrote %d tracts to %s (%d excluded)\n", len(ds.Tracts), out, len(ds.Excluded))
		for _, ex := range ds.Excluded {
			fmt.Printf("  excluded %s: %s\n", ex.GEOID, ex.Reason)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("state", "", "two-digit state FIPS code (e.g. 24)")
	fetchCmd.Flags().String("county", "", "three-digit county FIPS code (e.g. 510)")
	fetchCmd.Flags().String("out", "", "output GeoJSON path (default <output.dir>/dataset.geojson)")
	fetchCmd.Flags().Bool("allow-missing-geometry", false, "exclude attribute rows without geometry instead of failing")
	rootCmd.AddCommand(fetchCmd)
}
