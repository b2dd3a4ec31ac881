package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ClusterLabel classifies a tract's local spatial association after
// significance filtering.
type ClusterLabel int

const (
	// Insignificant marks tracts whose pseudo p-value exceeds the
	// FDR-adjusted threshold, regardless of sign.
	Insignificant ClusterLabel = iota
	// HighHigh: above-mean value surrounded by above-mean neighbors.
	HighHigh
	// LowLow: below-mean value surrounded by below-mean neighbors.
	LowLow
	// LowHigh: below-mean value surrounded by above-mean neighbors.
	LowHigh
	// HighLow: above-mean value surrounded by below-mean neighbors.
	HighLow
)

var clusterNames = map[ClusterLabel]string{
	Insignificant: "Insignificant",
	HighHigh:      "High-High",
	LowLow:        "Low-Low",
	LowHigh:       "Low-High",
	HighLow:       "High-Low",
}

// String returns the display name of the label.
func (c ClusterLabel) String() string {
	if s, ok := clusterNames[c]; ok {
		return s
	}
	return "Unknown"
}

// MarshalJSON encodes the label as its display name.
func (c ClusterLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a label from its display name.
func (c *ClusterLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "model: unmarshal cluster label")
	}
	for label, name := range clusterNames {
		if name == s {
			*c = label
			return nil
		}
	}
	return eris.Errorf("model: unknown cluster label %q", s)
}

// GlobalResult holds the observed global Moran's I together with its
// permutation-derived inference.
type GlobalResult struct {
	I            float64 `json:"moran_i"`
	Expected     float64 `json:"expected_i"` // -1/(n-1) under the null
	PseudoP      float64 `json:"pseudo_p"`
	Permutations int     `json:"permutations"`
	Seed         int64   `json:"seed"`
}

// LocalResult holds one tract's local Moran's I, its conditional
// permutation inference, and its FDR-filtered cluster label.
type LocalResult struct {
	GEOID   string       `json:"geoid"`
	I       float64      `json:"local_i"`
	PseudoP float64      `json:"pseudo_p"`
	Label   ClusterLabel `json:"label"`
}

// AnalysisResult bundles everything one run produces.
type AnalysisResult struct {
	Global       GlobalResult  `json:"global"`
	Locals       []LocalResult `json:"locals"` // input order
	FDRThreshold float64       `json:"fdr_threshold"`
	Alpha        float64       `json:"alpha"`
}
