package recommend

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"focus-tasks-backend/internal/store"
)

// FeatureCount is the length of every feature vector: six user features
// followed by two reference features.
const FeatureCount = 8

const (
	defaultAvgDuration       = 25.0
	defaultCompletionRate    = 0.5
	defaultAvgEfficiency     = 0.5
	defaultHighPriorityRatio = 0.3

	recentWindow = 7 * 24 * time.Hour
	tagBuckets   = 10
)

// UserStats describes recent user behaviour inside the lookback window.
type UserStats struct {
	AvgDuration       float64 `json:"avg_duration"`
	CompletionRate    float64 `json:"completion_rate"`
	AvgEfficiency     float64 `json:"avg_efficiency"`
	HighPriorityRatio float64 `json:"high_priority_ratio"`
	WeeklyCompleted   float64 `json:"weekly_completed"`
	TagEncoded        float64 `json:"tag_encoded"`
}

// ReferenceStats averages every stored synthetic sample.
type ReferenceStats struct {
	AvgDuration   float64 `json:"avg_duration"`
	AvgEfficiency float64 `json:"avg_efficiency"`
	Samples       int     `json:"samples"`
}

// Features is one complete model input.
type Features struct {
	User      UserStats      `json:"user"`
	Reference ReferenceStats `json:"reference"`
}

// Vector returns the features in model order.
func (f Features) Vector() []float64 {
	return []float64{
		f.User.AvgDuration,
		f.User.CompletionRate,
		f.User.AvgEfficiency,
		f.User.HighPriorityRatio,
		f.User.WeeklyCompleted,
		f.User.TagEncoded,
		f.Reference.AvgDuration,
		f.Reference.AvgEfficiency,
	}
}

// History is the read side of the store the feature builder needs.
type History interface {
	ListSessionsSince(ctx context.Context, since time.Time) ([]store.FocusSession, error)
	ListTasksCreatedSince(ctx context.Context, since time.Time) ([]store.Task, error)
	ListTasksCompletedSince(ctx context.Context, since time.Time) ([]store.Task, error)
	SampleStats(ctx context.Context) (store.SampleStats, error)
}

// FeatureBuilder turns stored history into feature vectors. It never writes.
type FeatureBuilder struct {
	history  History
	lookback time.Duration
}

func NewFeatureBuilder(history History, lookback time.Duration) *FeatureBuilder {
	return &FeatureBuilder{history: history, lookback: lookback}
}

// Build computes the features as of now.
func (b *FeatureBuilder) Build(ctx context.Context, now time.Time) (Features, error) {
	now = now.UTC()
	since := now.Add(-b.lookback)

	ref, err := b.Reference(ctx)
	if err != nil {
		return Features{}, err
	}

	sessions, err := b.history.ListSessionsSince(ctx, since)
	if err != nil {
		return Features{}, fmt.Errorf("load sessions: %w", err)
	}
	created, err := b.history.ListTasksCreatedSince(ctx, since)
	if err != nil {
		return Features{}, fmt.Errorf("load tasks: %w", err)
	}
	completed, err := b.history.ListTasksCompletedSince(ctx, now.Add(-recentWindow))
	if err != nil {
		return Features{}, fmt.Errorf("load completed tasks: %w", err)
	}

	return Features{
		User:      userStats(sessionsUpTo(sessions, now), created, completed, now, b.lookback),
		Reference: ref,
	}, nil
}

// Reference averages the synthetic samples, falling back to defaults when none exist.
func (b *FeatureBuilder) Reference(ctx context.Context) (ReferenceStats, error) {
	st, err := b.history.SampleStats(ctx)
	if err != nil {
		return ReferenceStats{}, fmt.Errorf("load reference stats: %w", err)
	}
	if st.Count == 0 {
		return ReferenceStats{AvgDuration: defaultAvgDuration, AvgEfficiency: defaultAvgEfficiency}, nil
	}
	return ReferenceStats{AvgDuration: st.AvgDuration, AvgEfficiency: st.AvgEfficiency, Samples: st.Count}, nil
}

// TrainingSet builds one example per consecutive pair of sessions in the
// lookback window ending at now: features from sessions[0..i] as of the
// start of session i+1, labelled with the duration of session i+1.
func (b *FeatureBuilder) TrainingSet(ctx context.Context, now time.Time) ([][]float64, []float64, error) {
	now = now.UTC()
	since := now.Add(-b.lookback)

	ref, err := b.Reference(ctx)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := b.history.ListSessionsSince(ctx, since)
	if err != nil {
		return nil, nil, fmt.Errorf("load sessions: %w", err)
	}
	sessions = sessionsUpTo(sessions, now)
	if len(sessions) < 2 {
		return nil, nil, nil
	}

	// every as-of instant lies in [since, now], so these cover all windows
	tasks, err := b.history.ListTasksCreatedSince(ctx, since.Add(-b.lookback))
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	completed, err := b.history.ListTasksCompletedSince(ctx, since.Add(-recentWindow))
	if err != nil {
		return nil, nil, fmt.Errorf("load completed tasks: %w", err)
	}

	X := make([][]float64, 0, len(sessions)-1)
	y := make([]float64, 0, len(sessions)-1)
	for i := 0; i+1 < len(sessions); i++ {
		at := sessions[i+1].StartTime
		f := Features{
			User:      userStats(sessions[:i+1], tasksCreatedIn(tasks, at.Add(-b.lookback), at), completed, at, b.lookback),
			Reference: ref,
		}
		X = append(X, f.Vector())
		y = append(y, sessions[i+1].Duration)
	}
	return X, y, nil
}

// userStats is the pure computation behind Build and TrainingSet. completed
// may contain tasks outside the recent window; they are filtered against at.
func userStats(sessions []store.FocusSession, created, completed []store.Task, at time.Time, lookback time.Duration) UserStats {
	u := UserStats{
		AvgDuration:       defaultAvgDuration,
		CompletionRate:    defaultCompletionRate,
		AvgEfficiency:     defaultAvgEfficiency,
		HighPriorityRatio: defaultHighPriorityRatio,
	}

	if len(sessions) > 0 {
		durations := make([]float64, len(sessions))
		efficiencies := make([]float64, len(sessions))
		for i, s := range sessions {
			durations[i] = s.Duration
			efficiencies[i] = s.EfficiencyScore
		}
		u.AvgDuration = stat.Mean(durations, nil)
		u.AvgEfficiency = stat.Mean(efficiencies, nil)
	}

	created = tasksCreatedIn(created, at.Add(-lookback), at)
	if len(created) > 0 {
		var done, high int
		for _, t := range created {
			if completedBy(t, at) {
				done++
			}
			if t.Priority == 3 {
				high++
			}
		}
		n := float64(len(created))
		u.CompletionRate = float64(done) / n
		u.HighPriorityRatio = float64(high) / n
	}

	recentFrom := at.Add(-recentWindow)
	for _, t := range completed {
		if completedBy(t, at) && t.CompletedAt.After(recentFrom) {
			u.WeeklyCompleted++
		}
	}

	u.TagEncoded = float64(EncodeTag(mostFrequentTag(created)))
	return u
}

func completedBy(t store.Task, at time.Time) bool {
	return t.Status == store.StatusCompleted && t.CompletedAt != nil && !t.CompletedAt.After(at)
}

func tasksCreatedIn(tasks []store.Task, from, to time.Time) []store.Task {
	out := make([]store.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.CreatedAt.Before(from) && !t.CreatedAt.After(to) {
			out = append(out, t)
		}
	}
	return out
}

func sessionsUpTo(sessions []store.FocusSession, at time.Time) []store.FocusSession {
	out := sessions[:0:0]
	for _, s := range sessions {
		if !s.StartTime.After(at) {
			out = append(out, s)
		}
	}
	return out
}

// mostFrequentTag returns the lowercased tag used by the most tasks; ties go
// to the lexicographically smallest. Empty when no task has tags.
func mostFrequentTag(tasks []store.Task) string {
	counts := map[string]int{}
	for _, t := range tasks {
		for _, tag := range t.TagList() {
			counts[strings.ToLower(tag)]++
		}
	}
	if len(counts) == 0 {
		return ""
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	best := tags[0]
	for _, tag := range tags[1:] {
		if counts[tag] > counts[best] {
			best = tag
		}
	}
	return best
}

// EncodeTag maps a tag to a bucket in [0,10) via FNV-1a. The empty tag maps to 0.
func EncodeTag(tag string) int {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	return int(h.Sum32() % tagBuckets)
}
