package dataset

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

// WriteGeoJSON writes the dataset as a GeoJSON FeatureCollection, one
// feature per tract with attribute counts as properties. When locals is
// non-nil, each tract's local statistic, pseudo p-value, and cluster
// label are attached so the downstream choropleth layer needs no second
// join.
func WriteGeoJSON(w io.Writer, ds *model.Dataset, locals []model.LocalResult) error {
	byGEOID := make(map[string]model.LocalResult, len(locals))
	for _, lr := range locals {
		byGEOID[lr.GEOID] = lr
	}

	fc := geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(ds.Tracts)),
	}

	for _, t := range ds.Tracts {
		props := map[string]interface{}{
			"geoid":      t.GEOID,
			"name":       t.Name,
			"events":     t.Events,
			"population": t.Population,
			"rate":       t.Rate(),
		}
		if lr, ok := byGEOID[t.GEOID]; ok {
			props["local_i"] = lr.I
			props["pseudo_p"] = lr.PseudoP
			props["cluster"] = lr.Label.String()
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         t.GEOID,
			Geometry:   t.Geometry,
			Properties: props,
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(&fc); err != nil {
		return eris.Wrap(err, "dataset: encode GeoJSON")
	}
	return nil
}
