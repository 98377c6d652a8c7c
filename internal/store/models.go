package store

import (
	"strings"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Task is a to-do item. CompletedAt is non-nil exactly when Status is completed.
type Task struct {
	ID          int64      `db:"id"           json:"id"`
	Title       string     `db:"title"        json:"title"`
	Description string     `db:"description"  json:"description"`
	Priority    int        `db:"priority"     json:"priority"`
	Tags        string     `db:"tags"         json:"tags"`
	Status      string     `db:"status"       json:"status"`
	OrderIndex  int        `db:"order_index"  json:"order_index"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
}

// TagList splits the comma-separated tags, dropping blank entries.
func (t Task) TagList() []string {
	var tags []string
	for _, part := range strings.Split(t.Tags, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// NormalizeTags trims each comma-separated tag and drops empty ones.
func NormalizeTags(raw string) string {
	return strings.Join(Task{Tags: raw}.TagList(), ",")
}

// FocusSession is one logged block of focused work, duration in minutes.
type FocusSession struct {
	ID              int64      `db:"id"               json:"id"`
	TaskID          *int64     `db:"task_id"          json:"task_id"`
	Duration        float64    `db:"duration"         json:"duration"`
	StartTime       time.Time  `db:"start_time"       json:"start_time"`
	EndTime         *time.Time `db:"end_time"         json:"end_time"`
	EfficiencyScore float64    `db:"efficiency_score" json:"efficiency_score"`
}

// Recommendation is an append-only snapshot of one produced recommendation.
// UserData holds the JSON-encoded feature inputs.
type Recommendation struct {
	ID                  int64     `db:"id"                   json:"id"`
	RecommendedDuration float64   `db:"recommended_duration" json:"recommended_duration"`
	Confidence          float64   `db:"confidence"           json:"confidence"`
	ModelVersion        string    `db:"model_version"        json:"model_version"`
	CreatedAt           time.Time `db:"created_at"           json:"created_at"`
	UserData            *string   `db:"user_data"            json:"-"`
}

// SyntheticSample is a generated reference data point.
type SyntheticSample struct {
	ID         int64     `db:"id"         json:"id"`
	Source     string    `db:"source"     json:"source"`
	Duration   float64   `db:"duration"   json:"duration"`
	Category   string    `db:"category"   json:"category"`
	Efficiency float64   `db:"efficiency" json:"efficiency"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	RawData    string    `db:"raw_data"   json:"-"`
}

// SampleStats aggregates every stored synthetic sample.
type SampleStats struct {
	Count         int     `db:"n"`
	AvgDuration   float64 `db:"avg_duration"`
	AvgEfficiency float64 `db:"avg_efficiency"`
}

// PruneResult counts rows removed by one pruning pass.
type PruneResult struct {
	Tasks           int64 `json:"tasks"`
	Sessions        int64 `json:"sessions"`
	Recommendations int64 `json:"recommendations"`
}
