package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/config"
	"focus-tasks-backend/internal/reference"
	"focus-tasks-backend/internal/store"
	"focus-tasks-backend/internal/testutil"
)

func TestRegisterAllTasks(t *testing.T) {
	tasks := RegisterAllTasks(TaskDeps{})
	for _, name := range []string{SyntheticData, Prune, Maintenance} {
		if tasks[name] == nil {
			t.Errorf("task %q not registered", name)
		}
	}
	if err := tasks[Prune](context.Background()); !errors.Is(err, errMissingDependency) {
		t.Errorf("prune without store error = %v", err)
	}
}

func TestSyntheticDataTask(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	tasks := RegisterAllTasks(TaskDeps{Store: s, Generator: reference.NewGenerator(3), Logger: zap.NewNop()})

	for i := 0; i < 2; i++ {
		if err := tasks[SyntheticData](ctx); err != nil {
			t.Fatalf("synthetic_data run %d: %v", i, err)
		}
	}
	stats, err := s.SampleStats(ctx)
	if err != nil {
		t.Fatalf("SampleStats failed: %v", err)
	}
	if stats.Count != 2*reference.BatchSize() {
		t.Errorf("stored %d samples, want %d", stats.Count, 2*reference.BatchSize())
	}
}

func TestPruneTask(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	old := now.Add(-20 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	for _, task := range []*store.Task{
		{Title: "old done", Status: store.StatusCompleted, CreatedAt: old, CompletedAt: &old},
		{Title: "recent done", Status: store.StatusCompleted, CreatedAt: recent, CompletedAt: &recent},
		{Title: "old open", CreatedAt: old},
	} {
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	tasks := RegisterAllTasks(TaskDeps{
		Store:     s,
		Retention: 14 * 24 * time.Hour,
		Now:       func() time.Time { return now },
	})
	if err := tasks[Prune](ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	left, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(left) != 2 {
		t.Fatalf("%d tasks left, want 2", len(left))
	}
	for _, task := range left {
		if task.Title == "old done" {
			t.Error("old completed task survived pruning")
		}
	}
}

func TestMaintenanceTask(t *testing.T) {
	tasks := RegisterAllTasks(TaskDeps{Store: testutil.NewStore(t)})
	if err := tasks[Maintenance](context.Background()); err != nil {
		t.Errorf("db_maintenance: %v", err)
	}
}

func TestScheduler_Start(t *testing.T) {
	tasks := map[string]ScheduledTaskFunc{
		"a": func(context.Context) error { return nil },
		"b": func(context.Context) error { return nil },
	}

	tests := []struct {
		name      string
		schedules map[string]config.JobSchedule
		want      int
		wantErr   bool
	}{
		{
			name: "enabled and disabled",
			schedules: map[string]config.JobSchedule{
				"a": {Enabled: true, Schedule: "0 2 * * *"},
				"b": {Enabled: false, Schedule: "0 3 * * *"},
			},
			want: 1,
		},
		{
			name: "unregistered job is skipped",
			schedules: map[string]config.JobSchedule{
				"a":       {Enabled: true, Schedule: "*/5 * * * *"},
				"missing": {Enabled: true, Schedule: "0 1 * * *"},
			},
			want: 1,
		},
		{
			name: "invalid cron expression",
			schedules: map[string]config.JobSchedule{
				"a": {Enabled: true, Schedule: "every day"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler("UTC", tt.schedules, tasks, zap.NewNop())
			if err != nil {
				t.Fatalf("NewScheduler failed: %v", err)
			}

			got, err := s.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			t.Cleanup(func() { _ = s.Stop() })

			if got != tt.want {
				t.Errorf("Start() scheduled %d jobs, want %d", got, tt.want)
			}
			if _, err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
				t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
			}
		})
	}
}

func TestNewScheduler_BadTimezone(t *testing.T) {
	if _, err := NewScheduler("Mars/Olympus", nil, nil, nil); err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}
