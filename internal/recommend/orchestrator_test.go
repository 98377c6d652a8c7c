package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/store"
	"focus-tasks-backend/internal/testutil"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store, string) {
	t.Helper()
	s := testutil.NewStore(t)
	modelPath := filepath.Join(t.TempDir(), "model.json")
	o := NewOrchestrator(s, Options{
		ModelPath:    modelPath,
		Version:      "v1.0",
		Lookback:     lookback,
		RetrainEvery: 10,
		Forest:       smallParams(),
	}, zap.NewNop())
	return o, s, modelPath
}

func recordSession(t *testing.T, s *store.Store, start time.Time, duration float64) {
	t.Helper()
	if err := s.CreateSession(context.Background(), &store.FocusSession{
		Duration: duration, StartTime: start, EfficiencyScore: 0.5,
	}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
}

func TestOnSessionRecorded_FirstSessionUsesFallback(t *testing.T) {
	o, s, _ := newTestOrchestrator(t)
	ctx := context.Background()

	task := &store.Task{Title: "Write report", Priority: 2}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := s.CreateSession(ctx, &store.FocusSession{
		TaskID: &task.ID, Duration: 30, StartTime: time.Now().UTC().Add(-time.Minute), EfficiencyScore: 0.5,
	}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec, err := o.OnSessionRecorded(ctx)
	if err != nil {
		t.Fatalf("OnSessionRecorded failed: %v", err)
	}
	if rec.RecommendedDuration != 33 || rec.Confidence != 0.3 {
		t.Errorf("recommendation = %v / %v, want 33 / 0.3", rec.RecommendedDuration, rec.Confidence)
	}
	if rec.ModelVersion != "v1.0" || rec.UserData == nil {
		t.Errorf("snapshot missing metadata: %+v", rec)
	}

	latest, err := s.LatestRecommendation(ctx)
	if err != nil {
		t.Fatalf("LatestRecommendation failed: %v", err)
	}
	if latest.ID != rec.ID {
		t.Errorf("latest snapshot = %d, want %d", latest.ID, rec.ID)
	}

	var f Features
	if err := json.Unmarshal([]byte(*latest.UserData), &f); err != nil {
		t.Fatalf("user_data is not features json: %v", err)
	}
	if f.User.AvgDuration != 30 {
		t.Errorf("stored avg duration = %v, want 30", f.User.AvgDuration)
	}
}

func TestOnSessionRecorded_RetrainsOnTenthSession(t *testing.T) {
	o, s, modelPath := newTestOrchestrator(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-12 * time.Hour)

	for i := 0; i < 9; i++ {
		recordSession(t, s, base.Add(time.Duration(i)*time.Hour), 20+float64(i)*3)
		if _, err := o.OnSessionRecorded(ctx); err != nil {
			t.Fatalf("OnSessionRecorded failed: %v", err)
		}
	}
	if o.Trained() {
		t.Fatal("model should not train before the tenth session")
	}
	if _, err := os.Stat(modelPath); !os.IsNotExist(err) {
		t.Fatalf("model file should not exist yet, stat err = %v", err)
	}

	recordSession(t, s, base.Add(9*time.Hour), 47)
	rec, err := o.OnSessionRecorded(ctx)
	if err != nil {
		t.Fatalf("OnSessionRecorded failed: %v", err)
	}
	if !o.Trained() {
		t.Fatal("model should train on the tenth session")
	}
	if rec.Confidence != 0.9 {
		t.Errorf("trained confidence = %v, want 0.9", rec.Confidence)
	}
	if rec.RecommendedDuration < MinDuration || rec.RecommendedDuration > MaxDuration {
		t.Errorf("duration %v outside [15,60]", rec.RecommendedDuration)
	}

	restored, _, _ := newTestOrchestrator(t)
	restored.opts.ModelPath = modelPath
	if err := restored.LoadModel(); err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if !restored.Trained() {
		t.Error("restored orchestrator should be trained")
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	o, s, modelPath := newTestOrchestrator(t)
	recordSession(t, s, time.Now().UTC().Add(-time.Hour), 25)

	res, err := o.Train(context.Background())
	if err == nil {
		t.Fatal("Train() should fail with one session")
	}
	if res.Examples != 0 || o.Trained() {
		t.Errorf("res = %+v trained = %v", res, o.Trained())
	}
	if _, err := os.Stat(modelPath); !os.IsNotExist(err) {
		t.Error("no model file should be written")
	}
}

func TestLive_ReportsRecentSamples(t *testing.T) {
	o, s, _ := newTestOrchestrator(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	batch := make([]store.SyntheticSample, 7)
	for i := range batch {
		batch[i] = store.SyntheticSample{
			Source:     "pomodoro_technique",
			Duration:   30 + float64(i),
			Category:   "work",
			Efficiency: 0.7,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
	}
	if err := s.InsertSamples(ctx, batch); err != nil {
		t.Fatalf("InsertSamples failed: %v", err)
	}

	live, err := o.Live(ctx)
	if err != nil {
		t.Fatalf("Live() error = %v", err)
	}
	if len(live.Samples) != recentSamples {
		t.Fatalf("Live() returned %d samples, want %d", len(live.Samples), recentSamples)
	}
	if live.Samples[0].Duration != 36 {
		t.Errorf("newest sample duration = %v, want 36", live.Samples[0].Duration)
	}
	if live.Features.Reference.Samples != 7 {
		t.Errorf("reference stats cover %d samples, want 7", live.Features.Reference.Samples)
	}
}

func TestRecommendationHandlers(t *testing.T) {
	o, s, _ := newTestOrchestrator(t)
	logger := zap.NewNop()

	rec := httptest.NewRecorder()
	GetRecommendationHandler(o, logger)(rec, httptest.NewRequest(http.MethodGet, "/api/recommendation", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var got struct {
		Success bool `json:"success"`
		Data    struct {
			RecommendedDuration  float64                 `json:"recommended_duration"`
			Confidence           float64                 `json:"confidence"`
			LatestRecommendation json.RawMessage         `json:"latest_recommendation"`
			ReferenceSamples     []store.SyntheticSample `json:"reference_samples"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Data.ReferenceSamples == nil || len(got.Data.ReferenceSamples) != 0 {
		t.Errorf("reference_samples = %v, want an empty list", got.Data.ReferenceSamples)
	}
	if !got.Success || got.Data.RecommendedDuration != 27.5 || got.Data.Confidence != 0.3 {
		t.Errorf("unexpected recommendation: %+v", got)
	}
	if string(got.Data.LatestRecommendation) != "null" {
		t.Errorf("latest_recommendation = %s, want null", got.Data.LatestRecommendation)
	}

	rec = httptest.NewRecorder()
	TrainHandler(o, logger)(rec, httptest.NewRequest(http.MethodPost, "/api/recommendation/train", nil))
	var trainResp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&trainResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || trainResp.Success {
		t.Errorf("train with no data = %d %+v, want 200 success=false", rec.Code, trainResp)
	}

	base := time.Now().UTC().Add(-5 * time.Hour)
	for i := 0; i < 4; i++ {
		recordSession(t, s, base.Add(time.Duration(i)*time.Hour), 25+float64(i)*5)
	}
	rec = httptest.NewRecorder()
	TrainHandler(o, logger)(rec, httptest.NewRequest(http.MethodPost, "/api/recommendation/train", nil))
	if err := json.NewDecoder(rec.Body).Decode(&trainResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !trainResp.Success {
		t.Errorf("train with data = %+v, want success", trainResp)
	}
}
