package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var errMissingDependency = errors.New("task dependency not configured")

func newSyntheticDataTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		if deps.Generator == nil || deps.Store == nil {
			return fmt.Errorf("%s: %w", SyntheticData, errMissingDependency)
		}
		n, err := deps.Generator.Run(ctx, deps.Store, nil)
		if err != nil {
			return fmt.Errorf("generate synthetic data: %w", err)
		}
		deps.Logger.Info("synthetic data batch stored", zap.Int("samples", n))
		return nil
	}
}

func newPruneTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		if deps.Store == nil {
			return fmt.Errorf("%s: %w", Prune, errMissingDependency)
		}
		cutoff := deps.Now().UTC().Add(-deps.Retention)
		res, err := deps.Store.Prune(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
		deps.Logger.Info("old history pruned",
			zap.Time("cutoff", cutoff),
			zap.Int64("tasks", res.Tasks),
			zap.Int64("sessions", res.Sessions),
			zap.Int64("recommendations", res.Recommendations),
		)
		return nil
	}
}

func newMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	return func(ctx context.Context) error {
		if deps.Store == nil {
			return fmt.Errorf("%s: %w", Maintenance, errMissingDependency)
		}
		start := time.Now()
		if err := deps.Store.RunMaintenance(ctx); err != nil {
			return fmt.Errorf("database maintenance: %w", err)
		}
		deps.Logger.Info("database maintenance finished", zap.Duration("took", time.Since(start)))
		return nil
	}
}
