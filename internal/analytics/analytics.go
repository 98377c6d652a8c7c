// Package analytics aggregates the last week of tasks and focus sessions.
package analytics

import (
	"context"
	"fmt"
	"time"

	"focus-tasks-backend/internal/store"
)

const (
	week       = 7 * 24 * time.Hour
	dateLayout = "2006-01-02"
)

type Store interface {
	ListTasksCompletedSince(ctx context.Context, since time.Time) ([]store.Task, error)
	ListSessionsSince(ctx context.Context, since time.Time) ([]store.FocusSession, error)
}

// DayStats is one calendar day (UTC) of activity.
type DayStats struct {
	Tasks     int     `json:"tasks"`
	FocusTime float64 `json:"focus_time"`
}

// WeeklyReport summarizes the seven days ending now.
type WeeklyReport struct {
	CompletedTasks int                 `json:"completed_tasks"`
	TasksByTag     map[string]int      `json:"tasks_by_tag"`
	TotalFocusTime float64             `json:"total_focus_time"`
	AvgFocusTime   float64             `json:"avg_focus_time"`
	Sessions       int                 `json:"sessions"`
	DailyStats     map[string]DayStats `json:"daily_stats"`
}

// Weekly loads the last week of activity and aggregates it.
func Weekly(ctx context.Context, st Store, now time.Time) (WeeklyReport, error) {
	now = now.UTC()
	since := now.Add(-week)

	completed, err := st.ListTasksCompletedSince(ctx, since)
	if err != nil {
		return WeeklyReport{}, fmt.Errorf("load completed tasks: %w", err)
	}
	sessions, err := st.ListSessionsSince(ctx, since)
	if err != nil {
		return WeeklyReport{}, fmt.Errorf("load focus sessions: %w", err)
	}

	return Aggregate(completed, sessions, now), nil
}

// Aggregate builds the report from tasks completed and sessions started in
// the week ending now. daily_stats always carries today and the six days before.
func Aggregate(completed []store.Task, sessions []store.FocusSession, now time.Time) WeeklyReport {
	now = now.UTC()
	r := WeeklyReport{
		TasksByTag: map[string]int{},
		DailyStats: make(map[string]DayStats, 7),
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		r.DailyStats[today.AddDate(0, 0, -i).Format(dateLayout)] = DayStats{}
	}

	for _, t := range completed {
		if t.CompletedAt == nil {
			continue
		}
		r.CompletedTasks++
		for _, tag := range t.TagList() {
			r.TasksByTag[tag]++
		}
		key := t.CompletedAt.UTC().Format(dateLayout)
		if day, ok := r.DailyStats[key]; ok {
			day.Tasks++
			r.DailyStats[key] = day
		}
	}

	for _, s := range sessions {
		r.Sessions++
		r.TotalFocusTime += s.Duration
		key := s.StartTime.UTC().Format(dateLayout)
		if day, ok := r.DailyStats[key]; ok {
			day.FocusTime += s.Duration
			r.DailyStats[key] = day
		}
	}
	if r.Sessions > 0 {
		r.AvgFocusTime = r.TotalFocusTime / float64(r.Sessions)
	}

	return r
}
