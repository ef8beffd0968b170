// Package store persists audit runs, attempt results and the bounded
// health-history series backing trend analysis.
package store

import (
	"context"
	"time"

	"github.com/linkscope/audit-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the audit engine.
//
// The health history is an append-only series keyed by platform+timestamp;
// AppendHealth never rewrites existing rows and callers prune via
// PruneHealth after a run's writes complete. ListHealth must recover from
// malformed rows by skipping them with a logged warning, never by failing
// the run.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run model.Run) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, successes int, finishedAt time.Time) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Attempts
	SaveAttempts(ctx context.Context, results []model.AttemptResult) error
	ListAttempts(ctx context.Context, runID string) ([]model.AttemptResult, error)

	// Health history
	AppendHealth(ctx context.Context, h model.PlatformHealth) error
	PruneHealth(ctx context.Context, cutoff time.Time) (int, error)
	ListHealth(ctx context.Context, platform model.Platform, since time.Time) ([]model.PlatformHealth, error)
	LatestHealth(ctx context.Context, platform model.Platform) (*model.PlatformHealth, error)
	Platforms(ctx context.Context) ([]model.Platform, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
