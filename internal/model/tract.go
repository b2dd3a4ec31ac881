// Package model defines the core data types shared across the analysis
// pipeline: tracts, datasets, analysis runs, and statistic results.
package model

import (
	"github.com/twpayne/go-geom"
)

// Tract is a single areal unit: one census tract with its attribute
// counts and polygon geometry. Instances are immutable once the dataset
// is assembled.
type Tract struct {
	GEOID      string             `json:"geoid"`
	Name       string             `json:"name,omitempty"`
	Events     int64              `json:"events"`     // cost-burdened households
	Population int64              `json:"population"` // total households (population at risk)
	Geometry   *geom.MultiPolygon `json:"-"`
}

// Rate returns the raw event rate. Undefined for zero population;
// such tracts must be excluded before analysis, so Rate returns 0 there.
func (t Tract) Rate() float64 {
	if t.Population == 0 {
		return 0
	}
	return float64(t.Events) / float64(t.Population)
}

// Exclusion records a tract removed from analysis and why.
type Exclusion struct {
	GEOID  string `json:"geoid"`
	Reason string `json:"reason"`
}

// Exclusion reasons.
const (
	ExcludeZeroPopulation = "zero_population"
	ExcludeNoGeometry     = "no_geometry"
	ExcludeIsland         = "no_neighbors"
)

// Dataset is the merged attribute+geometry table for one analysis run.
// Tracts preserves input order; Excluded lists every unit removed before
// weights construction, which callers must report rather than absorb.
type Dataset struct {
	Tracts   []Tract     `json:"tracts"`
	Excluded []Exclusion `json:"excluded,omitempty"`
}

// IndexOf returns the position of the tract with the given GEOID, or -1.
func (d *Dataset) IndexOf(geoid string) int {
	for i, t := range d.Tracts {
		if t.GEOID == geoid {
			return i
		}
	}
	return -1
}

// Events returns the per-tract event counts in input order.
func (d *Dataset) EventCounts() []int64 {
	out := make([]int64, len(d.Tracts))
	for i, t := range d.Tracts {
		out[i] = t.Events
	}
	return out
}

// Populations returns the per-tract population-at-risk counts in input order.
func (d *Dataset) Populations() []int64 {
	out := make([]int64, len(d.Tracts))
	for i, t := range d.Tracts {
		out[i] = t.Population
	}
	return out
}

// RawRates returns the per-tract raw rates in input order.
func (d *Dataset) RawRates() []float64 {
	out := make([]float64, len(d.Tracts))
	for i, t := range d.Tracts {
		out[i] = t.Rate()
	}
	return out
}
