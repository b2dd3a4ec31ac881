// Package dataset assembles the merged attribute+geometry table that
// the weights builder and the analysis engine consume.
package dataset

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbanmetrics/lisa-cli/internal/census"
	"github.com/urbanmetrics/lisa-cli/internal/model"
)

// JoinOptions controls how attribute and geometry tables are merged.
type JoinOptions struct {
	// AllowMissingGeometry downgrades an attribute row without a matching
	// polygon from a fatal error to a reported exclusion.
	AllowMissingGeometry bool
}

// Join merges per-tract attribute counts with tract polygons on GEOID
// and returns a dataset ordered by GEOID. A state shapefile covers more
// tracts than a single county's counts, so geometry-side extras are
// ignored; an attribute row without geometry is a join failure unless
// AllowMissingGeometry is set. Zero-population tracts are excluded and
// reported, never silently dropped.
func Join(counts map[string]census.Counts, geoms map[string]*geom.MultiPolygon, opts JoinOptions) (*model.Dataset, error) {
	if len(counts) == 0 {
		return nil, eris.New("dataset: no attribute rows to join")
	}

	geoids := make([]string, 0, len(counts))
	for geoid := range counts {
		geoids = append(geoids, geoid)
	}
	sort.Strings(geoids)

	ds := &model.Dataset{}
	var missing []string

	for _, geoid := range geoids {
		c := counts[geoid]

		mp, ok := geoms[geoid]
		if !ok || mp == nil {
			if opts.AllowMissingGeometry {
				ds.Excluded = append(ds.Excluded, model.Exclusion{GEOID: geoid, Reason: model.ExcludeNoGeometry})
				continue
			}
			missing = append(missing, geoid)
			continue
		}

		if c.Population == 0 {
			ds.Excluded = append(ds.Excluded, model.Exclusion{GEOID: geoid, Reason: model.ExcludeZeroPopulation})
			continue
		}

		ds.Tracts = append(ds.Tracts, model.Tract{
			GEOID:      geoid,
			Name:       c.Name,
			Events:     c.Events,
			Population: c.Population,
			Geometry:   mp,
		})
	}

	if len(missing) > 0 {
		return nil, eris.Errorf("dataset: %d attribute rows have no geometry: %s",
			len(missing), strings.Join(truncateList(missing, 5), ", "))
	}

	if len(ds.Tracts) == 0 {
		return nil, eris.New("dataset: all tracts excluded, nothing to analyze")
	}

	if len(ds.Excluded) > 0 {
		zap.L().Warn("dataset: tracts excluded from analysis",
			zap.Int("kept", len(ds.Tracts)),
			zap.Int("excluded", len(ds.Excluded)),
		)
	}

	return ds, nil
}

func truncateList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	out := make([]string, max+1)
	copy(out, items[:max])
	out[max] = "…"
	return out
}
