package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"focus-tasks-backend/internal/config"
	"focus-tasks-backend/internal/logger"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

// Scheduler runs registered tasks on their cron schedules. A task never
// overlaps with itself; a late run is rescheduled instead of queued.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
	schedules map[string]config.JobSchedule
	tasks     map[string]ScheduledTaskFunc

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler in the given IANA timezone.
func NewScheduler(timezone string, schedules map[string]config.JobSchedule, tasks map[string]ScheduledTaskFunc, l *zap.Logger) (*Scheduler, error) {
	if l == nil {
		l = zap.NewNop()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithLogger(logger.NewGocronLogger(l)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    l.Named("scheduler"),
		schedules: schedules,
		tasks:     tasks,
	}, nil
}

// Start registers every enabled task and starts ticking. It returns the
// number of jobs scheduled. An invalid cron expression fails the start.
func (s *Scheduler) Start(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return 0, ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	names := make([]string, 0, len(s.schedules))
	for name := range s.schedules {
		names = append(names, name)
	}
	sort.Strings(names)

	scheduled := 0
	for _, name := range names {
		sched := s.schedules[name]
		if !sched.Enabled {
			s.logger.Info("job disabled", zap.String("job", name))
			continue
		}
		task, ok := s.tasks[name]
		if !ok {
			s.logger.Warn("job configured but not registered", zap.String("job", name))
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(sched.Schedule, false),
			gocron.NewTask(s.wrap(runCtx, name, task)),
			gocron.WithName(name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return 0, fmt.Errorf("schedule job %s (%q): %w", name, sched.Schedule, err)
		}
		s.logger.Info("job scheduled", zap.String("job", name), zap.String("schedule", sched.Schedule))
		scheduled++
	}

	s.scheduler.Start()
	s.running = true
	s.cancel = cancel
	s.logger.Info("scheduler started", zap.Int("jobs", scheduled))
	return scheduled, nil
}

// Stop cancels in-flight tasks and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	err := s.scheduler.Shutdown()
	s.running = false
	if err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) wrap(ctx context.Context, name string, task ScheduledTaskFunc) func() {
	return func() {
		start := time.Now()
		s.logger.Debug("job started", zap.String("job", name))
		if err := task(ctx); err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}
