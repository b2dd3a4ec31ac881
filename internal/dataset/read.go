package dataset

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

// ReadGeoJSON reads a dataset previously written by WriteGeoJSON.
// Feature order is preserved.
func ReadGeoJSON(r io.Reader) (*model.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read GeoJSON")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "dataset: decode GeoJSON")
	}
	if len(fc.Features) == 0 {
		return nil, eris.New("dataset: GeoJSON has no features")
	}

	ds := &model.Dataset{Tracts: make([]model.Tract, 0, len(fc.Features))}
	for i, f := range fc.Features {
		t, err := featureToTract(f)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: feature %d", i)
		}
		ds.Tracts = append(ds.Tracts, t)
	}
	return ds, nil
}

// LoadGeoJSON reads a dataset from a file path.
func LoadGeoJSON(path string) (*model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadGeoJSON(f)
}

func featureToTract(f *geojson.Feature) (model.Tract, error) {
	var t model.Tract

	geoid, _ := f.Properties["geoid"].(string)
	if geoid == "" {
		geoid = f.ID
	}
	if geoid == "" {
		return t, eris.New("missing geoid")
	}
	t.GEOID = geoid
	t.Name, _ = f.Properties["name"].(string)

	events, ok := f.Properties["events"].(float64)
	if !ok {
		return t, eris.New("missing events count")
	}
	pop, ok := f.Properties["population"].(float64)
	if !ok {
		return t, eris.New("missing population count")
	}
	t.Events = int64(events)
	t.Population = int64(pop)

	switch g := f.Geometry.(type) {
	case *geom.MultiPolygon:
		t.Geometry = g
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(g.Layout()).SetSRID(g.SRID())
		if err := mp.Push(g); err != nil {
			return t, eris.Wrap(err, "wrap polygon")
		}
		t.Geometry = mp
	default:
		return t, eris.Errorf("unsupported geometry type %T", f.Geometry)
	}
	return t, nil
}
