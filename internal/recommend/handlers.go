package recommend

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/httpx"
	"focus-tasks-backend/internal/store"
)

type snapshotView struct {
	ID                  int64     `json:"id"`
	RecommendedDuration float64   `json:"recommended_duration"`
	Confidence          float64   `json:"confidence"`
	ModelVersion        string    `json:"model_version"`
	CreatedAt           time.Time `json:"created_at"`
	UserData            any       `json:"user_data"`
}

type recommendationView struct {
	RecommendedDuration  float64                 `json:"recommended_duration"`
	Confidence           float64                 `json:"confidence"`
	Fallback             bool                    `json:"fallback"`
	UserData             UserStats               `json:"user_data"`
	ReferenceData        ReferenceStats          `json:"reference_data"`
	LatestRecommendation *snapshotView           `json:"latest_recommendation"`
	ReferenceSamples     []store.SyntheticSample `json:"reference_samples"`
}

func newSnapshotView(r *store.Recommendation) *snapshotView {
	if r == nil {
		return nil
	}
	v := &snapshotView{
		ID:                  r.ID,
		RecommendedDuration: r.RecommendedDuration,
		Confidence:          r.Confidence,
		ModelVersion:        r.ModelVersion,
		CreatedAt:           r.CreatedAt,
	}
	if r.UserData != nil {
		var data any
		if err := json.Unmarshal([]byte(*r.UserData), &data); err == nil {
			v.UserData = data
		}
	}
	return v
}

// -------------------------------
// HANDLERS
// -------------------------------

// GetRecommendationHandler serves GET /api/recommendation.
func GetRecommendationHandler(o *Orchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		live, err := o.Live(r.Context())
		if err != nil {
			httpx.InternalError(w, logger, "live recommendation", err)
			return
		}

		httpx.OK(w, http.StatusOK, recommendationView{
			RecommendedDuration:  round(live.Prediction.Duration, 1),
			Confidence:           round(live.Prediction.Confidence, 2),
			Fallback:             live.Prediction.Fallback,
			UserData:             live.Features.User,
			ReferenceData:        live.Features.Reference,
			LatestRecommendation: newSnapshotView(live.Latest),
			ReferenceSamples:     live.Samples,
		})
	}
}

// TrainHandler serves POST /api/recommendation/train.
func TrainHandler(o *Orchestrator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := o.Train(r.Context())
		switch {
		case errors.Is(err, ErrInsufficientData):
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"success":  false,
				"message":  "not enough focus sessions to train",
				"examples": res.Examples,
			})
		case err != nil:
			httpx.InternalError(w, logger, "manual training", err)
		default:
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"success":  true,
				"message":  "model trained",
				"examples": res.Examples,
			})
		}
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
