package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urbanmetrics/lisa-cli/internal/dataset"
	"github.com/urbanmetrics/lisa-cli/internal/weights"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Build queen contiguity weights for a dataset and export the adjacency list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("dataset")
		out, _ := cmd.Flags().GetString("out")

		ds, err := dataset.LoadGeoJSON(in)
		if err != nil {
			return err
		}

		w, err := weights.BuildQueen(ds.Tracts)
		if err != nil {
			return err
		}

		islands := w.Islands()
		fmt.Printf("Built weights for %d tracts (S0 = %.0f, %d islands)\n", w.N(), w.S0(), len(islands))
		for _, i := range islands {
			fmt.Printf("  island: %s\n", ds.Tracts[i].GEOID)
		}

		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrapf(err, "create %s", out)
			}
			defer f.Close() //nolint:errcheck

			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			if err := enc.Encode(w.Adjacency()); err != nil {
				return eris.Wrap(err, "encode adjacency")
			}
			fmt.Printf("Wrote adjacency list to %s\n", out)
		}
		return nil
	},
}

func init() {
	weightsCmd.Flags().String("dataset", "out/dataset.geojson", "input dataset GeoJSON")
	weightsCmd.Flags().String("out", "", "optional adjacency list JSON output path")
	rootCmd.AddCommand(weightsCmd)
}
