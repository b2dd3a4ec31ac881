package weights

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urbanmetrics/lisa-cli/internal/model"
)

// vertex is a boundary coordinate used as a hash key. TIGER/Line
// polygons for adjacent tracts carry identical boundary vertices, so
// exact float comparison identifies shared points without a tolerance.
type vertex struct {
	x, y float64
}

// BuildQueen derives a binary queen-contiguity weights matrix from
// tract polygons: two tracts are neighbors iff their boundaries share
// at least one point. Tracts must all carry geometry; a nil geometry is
// a join error upstream, not a degenerate case handled here.
func BuildQueen(tracts []model.Tract) (*Matrix, error) {
	ids := make([]string, len(tracts))
	byVertex := make(map[vertex][]int)

	for i, t := range tracts {
		ids[i] = t.GEOID
		if t.Geometry == nil {
			return nil, eris.Errorf("weights: tract %s has no geometry", t.GEOID)
		}
		for _, v := range boundaryVertices(t.Geometry) {
			units := byVertex[v]
			// A tract can revisit a vertex (ring closure); record it once.
			if len(units) == 0 || units[len(units)-1] != i {
				byVertex[v] = append(units, i)
			}
		}
	}

	adjacency := make([]map[int]struct{}, len(tracts))
	for i := range adjacency {
		adjacency[i] = make(map[int]struct{})
	}
	for _, units := range byVertex {
		for a := 0; a < len(units); a++ {
			for b := a + 1; b < len(units); b++ {
				adjacency[units[a]][units[b]] = struct{}{}
				adjacency[units[b]][units[a]] = struct{}{}
			}
		}
	}

	m := newBinary(ids, adjacency)

	if islands := m.Islands(); len(islands) > 0 {
		names := make([]string, len(islands))
		for k, i := range islands {
			names[k] = ids[i]
		}
		zap.L().Warn("weights: units with no neighbors detected",
			zap.Int("count", len(islands)),
			zap.Strings("geoids", names),
		)
	}

	return m, nil
}

// boundaryVertices returns every ring coordinate of the polygon.
func boundaryVertices(mp *geom.MultiPolygon) []vertex {
	flat := mp.FlatCoords()
	stride := mp.Stride()
	out := make([]vertex, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, vertex{x: flat[i], y: flat[i+1]})
	}
	return out
}
