package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/config"
	"focus-tasks-backend/internal/jobs"
	"focus-tasks-backend/internal/recommend"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	dir := t.TempDir()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Database.DSN = filepath.Join(dir, "app.db")
	cfg.Model.Path = filepath.Join(dir, "model.json")
	cfg.Model.Trees = 5
	cfg.Model.MaxDepth = 4
	return cfg
}

func TestApp_Tasks(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(a.Close)
	ctx := context.Background()

	for _, name := range []string{jobs.SyntheticData, jobs.Prune, jobs.Maintenance} {
		if err := a.RunTask(ctx, name); err != nil {
			t.Errorf("RunTask(%s) = %v", name, err)
		}
	}
	if err := a.RunTask(ctx, "nope"); err == nil {
		t.Error("RunTask should reject unknown jobs")
	}

	if _, err := a.Train(ctx); !errors.Is(err, recommend.ErrInsufficientData) {
		t.Errorf("Train() on an empty store = %v, want ErrInsufficientData", err)
	}
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.GenerateOnStart = true
	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(a.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestApp_BadTimezone(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(a.Close)

	a.cfg.Jobs.Timezone = "Nowhere/Atlantis"
	if err := a.Serve(context.Background()); err == nil {
		t.Error("Serve should fail on an unknown timezone")
	}
}
