package model

import "time"

// RunStatus tracks an analysis run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// AnalysisParams are the knobs that must be recorded for a run to be
// reproducible: identical params on identical input reproduce identical
// statistics bit for bit.
type AnalysisParams struct {
	Permutations int     `json:"permutations"`
	Seed         int64   `json:"seed"`
	Alpha        float64 `json:"alpha"`
	EBAdjusted   bool    `json:"eb_adjusted"` // rate-adjusted global variant
	Dataset      string  `json:"dataset"`     // path of the GeoJSON dataset analyzed
}

// Run is one recorded analysis run.
type Run struct {
	ID        string          `json:"id"`
	Params    AnalysisParams  `json:"params"`
	Status    RunStatus       `json:"status"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
