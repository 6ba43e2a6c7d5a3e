// Package store persists the export run ledger: one record per export run
// with its output file and row counts, backed by SQLite or Postgres.
package store

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of an export run.
type RunStatus string

// Run lifecycle states.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary mirrors the export driver's counters for persistence.
type RunSummary struct {
	Organizations int `json:"organizations"`
	OrgFailures   int `json:"org_failures"`
	Documents     int `json:"documents"`
	Rows          int `json:"rows"`
	Retried       int `json:"retried"`
	RetryFailures int `json:"retry_failures"`
}

// Run is one recorded export run.
type Run struct {
	ID         string      `json:"id"`
	Flavor     string      `json:"flavor"`
	OutputFile string      `json:"output_file"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Flavor string    `json:"flavor,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Store defines the run-ledger persistence interface.
type Store interface {
	CreateRun(ctx context.Context, flavor, outputFile string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary *RunSummary) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
