package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"focus-tasks-backend/internal/app"
	"focus-tasks-backend/internal/jobs"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Store one batch of synthetic reference samples",
	RunE:  runJob(jobs.SyntheticData),
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete history older than jobs.retention",
	RunE:  runJob(jobs.Prune),
}

func runJob(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app.App, l *zap.Logger) error {
			l.Info("running job", zap.String("job", name))
			return a.RunTask(cmd.Context(), name)
		})
	}
}
