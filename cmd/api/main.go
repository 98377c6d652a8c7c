// Command focusd serves the task tracker API and runs its background jobs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"focus-tasks-backend/internal/app"
	"focus-tasks-backend/internal/config"
	"focus-tasks-backend/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "focusd",
	Short:         "Task tracker with focus-time recommendations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, l, nil
}

// withApp runs fn against a fully wired App and tears it down afterwards.
func withApp(fn func(a *app.App, l *zap.Logger) error) error {
	cfg, l, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	a, err := app.New(cfg, l)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a, l)
}
