// Package jobs holds the periodic background tasks and the cron scheduler
// that runs them.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/reference"
	"focus-tasks-backend/internal/store"
)

// Task names as used in configuration.
const (
	SyntheticData = "synthetic_data"
	Prune         = "prune"
	Maintenance   = "db_maintenance"
)

// ScheduledTaskFunc is one unit of periodic work.
type ScheduledTaskFunc func(ctx context.Context) error

// Store is the persistence the jobs need.
type Store interface {
	reference.Sink
	Prune(ctx context.Context, cutoff time.Time) (store.PruneResult, error)
	RunMaintenance(ctx context.Context) error
}

// TaskDeps carries everything task factories close over.
type TaskDeps struct {
	Store     Store
	Generator *reference.Generator
	Logger    *zap.Logger
	Retention time.Duration
	Now       func() time.Time
}

// RegisterAllTasks builds every known task keyed by name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return map[string]ScheduledTaskFunc{
		SyntheticData: newSyntheticDataTask(deps),
		Prune:         newPruneTask(deps),
		Maintenance:   newMaintenanceTask(deps),
	}
}
