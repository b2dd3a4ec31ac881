// Package weights builds and represents spatial weights matrices over
// areal units. The matrix is stored as a sparse adjacency structure:
// only adjacent pairs are materialized.
package weights

import (
	"sort"

	"github.com/rotisserie/eris"
)

// ErrIsland is returned when an operation requires neighbors and at
// least one unit has none. Callers must exclude islands explicitly
// before inference; the spatial lag of an island is undefined.
var ErrIsland = eris.New("weights: unit has no neighbors")

// Matrix is a sparse spatial weights matrix. Row i holds unit i's
// outgoing (neighbor, weight) pairs, neighbor indices sorted ascending.
// Matrices are immutable after construction; RowStandardize returns a
// new Matrix.
type Matrix struct {
	ids          []string
	neighbors    [][]int
	weightVals   [][]float64
	standardized bool
}

// NeighborWeight is one (neighbor, weight) entry in an adjacency export.
type NeighborWeight struct {
	GEOID  string  `json:"geoid"`
	Weight float64 `json:"weight"`
}

// UnitNeighbors is one unit's row in an adjacency-list export.
type UnitNeighbors struct {
	GEOID     string           `json:"geoid"`
	Neighbors []NeighborWeight `json:"neighbors"`
}

// newBinary builds a binary (0/1) matrix from adjacency sets.
func newBinary(ids []string, adjacency []map[int]struct{}) *Matrix {
	m := &Matrix{
		ids:        ids,
		neighbors:  make([][]int, len(ids)),
		weightVals: make([][]float64, len(ids)),
	}
	for i, set := range adjacency {
		ns := make([]int, 0, len(set))
		for j := range set {
			ns = append(ns, j)
		}
		sort.Ints(ns)
		ws := make([]float64, len(ns))
		for k := range ws {
			ws[k] = 1
		}
		m.neighbors[i] = ns
		m.weightVals[i] = ws
	}
	return m
}

// FromAdjacency builds a binary matrix from an explicit neighbor map
// keyed by unit ID. The relation is symmetrized; IDs listed in pairs
// but absent from ids are an error.
func FromAdjacency(ids []string, pairs map[string][]string) (*Matrix, error) {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	adjacency := make([]map[int]struct{}, len(ids))
	for i := range adjacency {
		adjacency[i] = make(map[int]struct{})
	}
	for id, neighbors := range pairs {
		i, ok := index[id]
		if !ok {
			return nil, eris.Errorf("weights: unknown unit %q in adjacency", id)
		}
		for _, nid := range neighbors {
			j, ok := index[nid]
			if !ok {
				return nil, eris.Errorf("weights: unknown neighbor %q of unit %q", nid, id)
			}
			if i == j {
				return nil, eris.Errorf("weights: unit %q listed as its own neighbor", id)
			}
			adjacency[i][j] = struct{}{}
			adjacency[j][i] = struct{}{}
		}
	}
	return newBinary(ids, adjacency), nil
}

// N returns the number of units.
func (m *Matrix) N() int { return len(m.ids) }

// IDs returns the unit identifiers in index order.
func (m *Matrix) IDs() []string { return m.ids }

// Standardized reports whether the matrix has been row-standardized.
func (m *Matrix) Standardized() bool { return m.standardized }

// Neighbors returns unit i's neighbor indices.
func (m *Matrix) Neighbors(i int) []int { return m.neighbors[i] }

// Weights returns unit i's outgoing weights, parallel to Neighbors(i).
func (m *Matrix) Weights(i int) []float64 { return m.weightVals[i] }

// Cardinality returns unit i's neighbor count.
func (m *Matrix) Cardinality(i int) int { return len(m.neighbors[i]) }

// Islands returns the indices of units with no neighbors, ascending.
func (m *Matrix) Islands() []int {
	var out []int
	for i := range m.neighbors {
		if len(m.neighbors[i]) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// S0 returns the sum of all weights.
func (m *Matrix) S0() float64 {
	var s float64
	for i := range m.weightVals {
		for _, w := range m.weightVals[i] {
			s += w
		}
	}
	return s
}

// RowStandardize returns a new matrix where every unit with at least
// one neighbor has outgoing weights summing to 1. Island rows stay
// empty; they remain visible through Islands() rather than being
// coerced to NaN-producing rows.
func (m *Matrix) RowStandardize() *Matrix {
	out := &Matrix{
		ids:          m.ids,
		neighbors:    m.neighbors,
		weightVals:   make([][]float64, len(m.ids)),
		standardized: true,
	}
	for i, ws := range m.weightVals {
		var sum float64
		for _, w := range ws {
			sum += w
		}
		row := make([]float64, len(ws))
		if sum > 0 {
			for k, w := range ws {
				row[k] = w / sum
			}
		}
		out.weightVals[i] = row
	}
	return out
}

// LagAt returns the spatial lag of values at unit i: the weighted sum
// of its neighbors' values. Returns ErrIsland if unit i has no
// neighbors.
func (m *Matrix) LagAt(i int, values []float64) (float64, error) {
	if len(m.neighbors[i]) == 0 {
		return 0, eris.Wrapf(ErrIsland, "unit %s", m.ids[i])
	}
	var lag float64
	for k, j := range m.neighbors[i] {
		lag += m.weightVals[i][k] * values[j]
	}
	return lag, nil
}

// Lag returns the spatial lag of values for every unit. Fails fast with
// ErrIsland if any unit has no neighbors.
func (m *Matrix) Lag(values []float64) ([]float64, error) {
	if islands := m.Islands(); len(islands) > 0 {
		return nil, eris.Wrapf(ErrIsland, "%d island unit(s), first %s", len(islands), m.ids[islands[0]])
	}
	out := make([]float64, len(m.ids))
	for i := range m.ids {
		lag, err := m.LagAt(i, values)
		if err != nil {
			return nil, err
		}
		out[i] = lag
	}
	return out, nil
}

// Subset returns a new matrix restricted to the units whose indices
// appear in keep (ascending order preserved). Edges to removed units
// are dropped; weights are not re-standardized.
func (m *Matrix) Subset(keep []int) *Matrix {
	remap := make(map[int]int, len(keep))
	ids := make([]string, len(keep))
	for newIdx, oldIdx := range keep {
		remap[oldIdx] = newIdx
		ids[newIdx] = m.ids[oldIdx]
	}
	out := &Matrix{
		ids:          ids,
		neighbors:    make([][]int, len(keep)),
		weightVals:   make([][]float64, len(keep)),
		standardized: m.standardized,
	}
	for newIdx, oldIdx := range keep {
		var ns []int
		var ws []float64
		for k, j := range m.neighbors[oldIdx] {
			if nj, ok := remap[j]; ok {
				ns = append(ns, nj)
				ws = append(ws, m.weightVals[oldIdx][k])
			}
		}
		out.neighbors[newIdx] = ns
		out.weightVals[newIdx] = ws
	}
	return out
}

// Adjacency exports the matrix as an adjacency list in unit order.
func (m *Matrix) Adjacency() []UnitNeighbors {
	out := make([]UnitNeighbors, len(m.ids))
	for i, id := range m.ids {
		row := UnitNeighbors{GEOID: id, Neighbors: make([]NeighborWeight, len(m.neighbors[i]))}
		for k, j := range m.neighbors[i] {
			row.Neighbors[k] = NeighborWeight{GEOID: m.ids[j], Weight: m.weightVals[i][k]}
		}
		out[i] = row
	}
	return out
}
