// Package store persists pipeline runs and their ranked lead output.
// Two backends are provided: embedded SQLite for single-machine use and
// PostgreSQL for shared deployments.
package store

import (
	"context"

	"github.com/sells-group/permit-radar/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// LeadFilter specifies criteria for listing a run's leads.
type LeadFilter struct {
	MinScore        int  `json:"min_score,omitempty"`
	HighQualityOnly bool `json:"high_quality_only,omitempty"`
	Limit           int  `json:"limit,omitempty"`
}

// Store defines the persistence interface for the lead pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Leads of a completed run, ranked by score.
	ListLeads(ctx context.Context, runID string, filter LeadFilter) ([]model.LeadRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
