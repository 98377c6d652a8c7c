// Package app wires configuration, storage, the recommendation pipeline,
// background jobs and the HTTP server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"focus-tasks-backend/internal/auth"
	"focus-tasks-backend/internal/config"
	"focus-tasks-backend/internal/db"
	"focus-tasks-backend/internal/jobs"
	"focus-tasks-backend/internal/recommend"
	"focus-tasks-backend/internal/reference"
	"focus-tasks-backend/internal/server"
	"focus-tasks-backend/internal/store"
)

type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	db           *sqlx.DB
	store        *store.Store
	orchestrator *recommend.Orchestrator
	generator    *reference.Generator
	tasks        map[string]jobs.ScheduledTaskFunc
}

// New connects to the database (applying migrations) and loads the model
// blob when one exists. Call Close when done.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := db.Connect(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns, logger.Named("db"))
	if err != nil {
		return nil, err
	}

	st := store.New(conn, logger.Named("store"))
	o := recommend.NewOrchestrator(st, recommend.Options{
		ModelPath:    cfg.Model.Path,
		Version:      cfg.Model.Version,
		Lookback:     cfg.Model.Lookback,
		RetrainEvery: cfg.Model.RetrainEvery,
		Forest: recommend.ForestParams{
			Trees:           cfg.Model.Trees,
			MaxDepth:        cfg.Model.MaxDepth,
			MinSamplesSplit: recommend.DefaultForestParams().MinSamplesSplit,
			Seed:            cfg.Model.Seed,
		},
	}, logger)

	switch err := o.LoadModel(); {
	case err == nil:
		logger.Info("model loaded", zap.String("path", cfg.Model.Path))
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no saved model, using fallback until first training", zap.String("path", cfg.Model.Path))
	default:
		logger.Warn("saved model ignored", zap.String("path", cfg.Model.Path), zap.Error(err))
	}

	gen := reference.NewGenerator(cfg.Model.Seed)
	a := &App{
		cfg:          cfg,
		logger:       logger,
		db:           conn,
		store:        st,
		orchestrator: o,
		generator:    gen,
	}
	a.tasks = jobs.RegisterAllTasks(jobs.TaskDeps{
		Store:     st,
		Generator: gen,
		Logger:    logger.Named("jobs"),
		Retention: cfg.Jobs.Retention,
	})
	return a, nil
}

func (a *App) Close() {
	db.Close(a.db, a.logger)
}

// Serve runs the HTTP server and the job scheduler until ctx is cancelled
// or either of them fails.
func (a *App) Serve(ctx context.Context) error {
	sched, err := jobs.NewScheduler(a.cfg.Jobs.Timezone, a.cfg.Jobs.Schedules(), a.tasks, a.logger)
	if err != nil {
		return err
	}

	if a.cfg.Jobs.GenerateOnStart {
		if err := a.RunTask(ctx, jobs.SyntheticData); err != nil {
			a.logger.Warn("initial synthetic data batch failed", zap.Error(err))
		}
	}

	srv := server.New(a.cfg.Server, a.store, a.orchestrator,
		auth.New([]byte(a.cfg.Auth.Secret), a.logger.Named("auth")), a.logger)
	if a.cfg.Auth.Secret == "" {
		a.logger.Warn("auth.secret is empty, API is open")
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gCtx)
	})

	g.Go(func() error {
		if _, err := sched.Start(gCtx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gCtx.Done()
		if err := sched.Stop(); err != nil {
			a.logger.Error("stop scheduler", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("stopped")
	return nil
}

// RunTask executes one registered job immediately.
func (a *App) RunTask(ctx context.Context, name string) error {
	task, ok := a.tasks[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return task(ctx)
}

// Train runs the manual training path once.
func (a *App) Train(ctx context.Context) (recommend.TrainResult, error) {
	return a.orchestrator.Train(ctx)
}
