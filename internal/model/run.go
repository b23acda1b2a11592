package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single pipeline invocation over a record batch.
type Run struct {
	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunSummary holds the headline counts for a run.
type RunSummary struct {
	InputRecords  int `json:"input_records"`
	MergedRecords int `json:"merged_records"`
	Actionable    int `json:"actionable"`
	HighQuality   int `json:"high_quality"`
	Clusters      int `json:"clusters"`
	Hotspots      int `json:"hotspots"`
}

// RunResult is the full derived output of a pipeline run: the ranked lead set
// plus its cluster and hotspot views. A new run wholly replaces the previous
// run's output; nothing here is incrementally patched.
type RunResult struct {
	Summary  RunSummary   `json:"summary"`
	Leads    []LeadRecord `json:"leads"`
	Clusters []Cluster    `json:"clusters"`
	Hotspots []Hotspot    `json:"hotspots"`
	Error    string       `json:"error,omitempty"`
}
