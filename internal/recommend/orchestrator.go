package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"focus-tasks-backend/internal/store"
)

// Store is everything the orchestrator reads and writes.
type Store interface {
	History
	CountSessions(ctx context.Context) (int, error)
	CreateRecommendation(ctx context.Context, r *store.Recommendation) error
	LatestRecommendation(ctx context.Context) (*store.Recommendation, error)
	ListSamples(ctx context.Context, limit int) ([]store.SyntheticSample, error)
}

// recentSamples is how many reference samples Live reports.
const recentSamples = 5

type Options struct {
	ModelPath    string
	Version      string
	Lookback     time.Duration
	RetrainEvery int
	Forest       ForestParams
}

// Orchestrator owns the predictor and runs the recommendation pipeline.
type Orchestrator struct {
	store   Store
	builder *FeatureBuilder
	opts    Options
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	predictor *Predictor
}

func NewOrchestrator(st Store, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetrainEvery <= 0 {
		opts.RetrainEvery = 10
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 14 * 24 * time.Hour
	}
	return &Orchestrator{
		store:     st,
		builder:   NewFeatureBuilder(st, opts.Lookback),
		opts:      opts,
		logger:    logger.Named("recommend"),
		now:       func() time.Time { return time.Now().UTC() },
		predictor: NewPredictor(opts.Forest, opts.Version),
	}
}

// LoadModel restores the predictor from the configured model file.
func (o *Orchestrator) LoadModel() error {
	if o.opts.ModelPath == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.predictor.LoadFile(o.opts.ModelPath)
}

// Trained reports whether the predictor has a fitted model.
func (o *Orchestrator) Trained() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.predictor.Trained()
}

// TrainResult describes one training attempt.
type TrainResult struct {
	Examples int `json:"examples"`
}

// Train fits the predictor on the sessions in the lookback window and saves
// the model file. ErrInsufficientData means fewer than two examples exist.
func (o *Orchestrator) Train(ctx context.Context) (TrainResult, error) {
	X, y, err := o.builder.TrainingSet(ctx, o.now())
	if err != nil {
		return TrainResult{}, fmt.Errorf("build training set: %w", err)
	}
	res := TrainResult{Examples: len(X)}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.predictor.Train(X, y); err != nil {
		return res, err
	}
	if o.opts.ModelPath != "" {
		if err := o.predictor.SaveFile(o.opts.ModelPath); err != nil {
			return res, fmt.Errorf("save model: %w", err)
		}
	}

	o.logger.Info("model trained", zap.Int("examples", res.Examples))
	return res, nil
}

// OnSessionRecorded runs after a focus session is stored: it retrains when
// the session count reaches a multiple of RetrainEvery, predicts, and stores
// a snapshot. Retraining and prediction failures are logged and recovered;
// the returned error only reports that no snapshot was stored.
func (o *Orchestrator) OnSessionRecorded(ctx context.Context) (*store.Recommendation, error) {
	count, err := o.store.CountSessions(ctx)
	if err != nil {
		o.logger.Warn("count sessions, skipping retrain", zap.Error(err))
	} else if count > 0 && count%o.opts.RetrainEvery == 0 {
		if _, err := o.Train(ctx); err != nil {
			if errors.Is(err, ErrInsufficientData) {
				o.logger.Info("retrain skipped", zap.Int("sessions", count), zap.Error(err))
			} else {
				o.logger.Error("retrain failed", zap.Int("sessions", count), zap.Error(err))
			}
		}
	}

	f, pred, err := o.predict(ctx)
	if err != nil {
		return nil, err
	}

	rec := &store.Recommendation{
		RecommendedDuration: pred.Duration,
		Confidence:          pred.Confidence,
		ModelVersion:        o.opts.Version,
	}
	if raw, err := json.Marshal(f); err == nil {
		s := string(raw)
		rec.UserData = &s
	}
	if err := o.store.CreateRecommendation(ctx, rec); err != nil {
		return nil, fmt.Errorf("store recommendation: %w", err)
	}

	o.logger.Debug("recommendation stored",
		zap.Float64("duration", rec.RecommendedDuration),
		zap.Float64("confidence", rec.Confidence),
		zap.Bool("fallback", pred.Fallback))
	return rec, nil
}

// Live is a freshly computed recommendation plus the latest stored snapshot.
type Live struct {
	Features   Features
	Prediction Prediction
	Latest     *store.Recommendation
	Samples    []store.SyntheticSample
}

// Live predicts for the current moment without writing anything.
func (o *Orchestrator) Live(ctx context.Context) (Live, error) {
	f, pred, err := o.predict(ctx)
	if err != nil {
		return Live{}, err
	}

	latest, err := o.store.LatestRecommendation(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Live{}, fmt.Errorf("load latest recommendation: %w", err)
	}
	samples, err := o.store.ListSamples(ctx, recentSamples)
	if err != nil {
		return Live{}, fmt.Errorf("load reference samples: %w", err)
	}
	return Live{Features: f, Prediction: pred, Latest: latest, Samples: samples}, nil
}

// predict builds features for now and asks the predictor. A model failure
// falls back to the rule estimate; only feature loading errors are returned.
func (o *Orchestrator) predict(ctx context.Context) (Features, Prediction, error) {
	f, err := o.builder.Build(ctx, o.now())
	if err != nil {
		return Features{}, Prediction{}, fmt.Errorf("build features: %w", err)
	}

	o.mu.Lock()
	pred, err := o.predictor.Predict(f.User, f.Reference)
	o.mu.Unlock()
	if err != nil {
		o.logger.Warn("prediction failed, using fallback", zap.Error(err))
	}
	return f, pred, nil
}
