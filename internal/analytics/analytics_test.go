package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/store"
	"focus-tasks-backend/internal/testutil"
)

func TestAggregate(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(-d); return &v }

	completed := []store.Task{
		{Tags: "work, deep", Status: store.StatusCompleted, CompletedAt: at(time.Hour)},
		{Tags: "work", Status: store.StatusCompleted, CompletedAt: at(26 * time.Hour)},
		{Tags: "", Status: store.StatusCompleted, CompletedAt: at(26 * time.Hour)},
	}
	sessions := []store.FocusSession{
		{Duration: 30, StartTime: now.Add(-2 * time.Hour)},
		{Duration: 50, StartTime: now.Add(-3 * 24 * time.Hour)},
	}

	r := Aggregate(completed, sessions, now)

	if r.CompletedTasks != 3 {
		t.Errorf("completed_tasks = %d, want 3", r.CompletedTasks)
	}
	if r.TasksByTag["work"] != 2 || r.TasksByTag["deep"] != 1 || len(r.TasksByTag) != 2 {
		t.Errorf("tasks_by_tag = %v", r.TasksByTag)
	}
	if r.TotalFocusTime != 80 || r.AvgFocusTime != 40 {
		t.Errorf("focus time total/avg = %v/%v, want 80/40", r.TotalFocusTime, r.AvgFocusTime)
	}
	if len(r.DailyStats) != 7 {
		t.Fatalf("daily_stats has %d days, want 7", len(r.DailyStats))
	}

	want := map[string]DayStats{
		"2026-03-10": {Tasks: 1, FocusTime: 30},
		"2026-03-09": {Tasks: 2},
		"2026-03-07": {FocusTime: 50},
		"2026-03-04": {},
	}
	for day, stats := range want {
		if got, ok := r.DailyStats[day]; !ok || got != stats {
			t.Errorf("daily_stats[%s] = %+v (present %v), want %+v", day, got, ok, stats)
		}
	}
	if _, ok := r.DailyStats["2026-03-03"]; ok {
		t.Error("daily_stats should not include an eighth day")
	}
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil, nil, time.Now())
	if r.CompletedTasks != 0 || r.AvgFocusTime != 0 || r.TasksByTag == nil || len(r.DailyStats) != 7 {
		t.Errorf("empty report = %+v", r)
	}
}

func TestWeeklyHandler(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-10 * 24 * time.Hour)

	for _, task := range []*store.Task{
		{Title: "recent", Tags: "study", Status: store.StatusCompleted, CompletedAt: &now},
		{Title: "old", Tags: "study", Status: store.StatusCompleted, CreatedAt: old, CompletedAt: &old},
		{Title: "open"},
	} {
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}
	if err := s.CreateSession(ctx, &store.FocusSession{Duration: 45, StartTime: now.Add(-time.Minute), EfficiencyScore: 0.5}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec := httptest.NewRecorder()
	WeeklyHandler(s, zap.NewNop())(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/weekly", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var env struct {
		Success bool         `json:"success"`
		Data    WeeklyReport `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data.CompletedTasks != 1 || env.Data.TasksByTag["study"] != 1 || env.Data.TotalFocusTime != 45 {
		t.Errorf("unexpected report: %+v", env.Data)
	}
}
