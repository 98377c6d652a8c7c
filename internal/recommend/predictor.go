package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

const (
	MinDuration = 15.0
	MaxDuration = 60.0

	fallbackConfidence = 0.3
	maxConfidence      = 0.9
	fallbackFactor     = 1.1
)

var (
	// ErrInsufficientData is returned by Train when fewer than two examples are supplied.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrMismatchedData is returned by Train when rows and labels differ in count.
	ErrMismatchedData = errors.New("training rows and labels differ in length")
	// ErrNotTrained is returned when a model blob is requested from an untrained predictor.
	ErrNotTrained = errors.New("model not trained")
)

// Prediction is a recommended focus duration in minutes.
type Prediction struct {
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback"`
}

// Predictor is a standardized random forest regressor. It is not safe for
// concurrent use; the orchestrator serializes access.
type Predictor struct {
	params  ForestParams
	version string

	trained bool
	scaler  *Scaler
	forest  *Forest
}

func NewPredictor(params ForestParams, version string) *Predictor {
	return &Predictor{params: params, version: version}
}

func (p *Predictor) Trained() bool   { return p.trained }
func (p *Predictor) Version() string { return p.version }

// Train fits the scaler and forest on (X, y). On any error the previous
// state is kept.
func (p *Predictor) Train(X [][]float64, y []float64) error {
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows and %d labels", ErrMismatchedData, len(X), len(y))
	}
	if len(X) < 2 {
		return fmt.Errorf("%w: %d examples", ErrInsufficientData, len(X))
	}

	scaler, err := FitScaler(X)
	if err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}

	scaled := make([][]float64, len(X))
	for i, row := range X {
		if scaled[i], err = scaler.Transform(row); err != nil {
			return fmt.Errorf("scale row %d: %w", i, err)
		}
	}

	forest, err := FitForest(scaled, y, p.params)
	if err != nil {
		return fmt.Errorf("fit forest: %w", err)
	}

	p.scaler, p.forest, p.trained = scaler, forest, true
	return nil
}

// Predict recommends a duration for the given features. An untrained
// predictor uses the rule avgDuration*1.1 with confidence 0.3. When the model
// fails, the same rule is returned together with the error.
func (p *Predictor) Predict(user UserStats, ref ReferenceStats) (Prediction, error) {
	if !p.trained {
		return fallback(user), nil
	}

	x, err := p.scaler.Transform(Features{User: user, Reference: ref}.Vector())
	if err != nil {
		return fallback(user), err
	}
	v, err := p.forest.Predict(x)
	if err != nil {
		return fallback(user), err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback(user), fmt.Errorf("model produced %v", v)
	}

	return Prediction{
		Duration:   clamp(v, MinDuration, MaxDuration),
		Confidence: math.Min(maxConfidence, 0.3+0.1*float64(FeatureCount)),
	}, nil
}

func fallback(user UserStats) Prediction {
	avg := user.AvgDuration
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		avg = defaultAvgDuration
	}
	return Prediction{
		Duration:   clamp(avg*fallbackFactor, MinDuration, MaxDuration),
		Confidence: fallbackConfidence,
		Fallback:   true,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

type modelBlob struct {
	Version string       `json:"version"`
	Trained bool         `json:"trained"`
	Params  ForestParams `json:"params"`
	Scaler  *Scaler      `json:"scaler"`
	Forest  *Forest      `json:"forest"`
}

// Save serializes the fitted model into one blob.
func (p *Predictor) Save() ([]byte, error) {
	if !p.trained {
		return nil, ErrNotTrained
	}
	return json.Marshal(modelBlob{
		Version: p.version,
		Trained: p.trained,
		Params:  p.params,
		Scaler:  p.scaler,
		Forest:  p.forest,
	})
}

// Load restores a blob written by Save. The predictor is untouched when the
// blob cannot be decoded or is inconsistent.
func (p *Predictor) Load(data []byte) error {
	var b modelBlob
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if b.Trained {
		if b.Scaler == nil || b.Forest == nil || len(b.Forest.Trees) == 0 {
			return errors.New("decode model: trained blob without parameters")
		}
		if len(b.Scaler.Mean) != FeatureCount || len(b.Scaler.Std) != FeatureCount || b.Forest.Features != FeatureCount {
			return fmt.Errorf("decode model: expected %d features", FeatureCount)
		}
		if err := b.Forest.validate(); err != nil {
			return fmt.Errorf("decode model: %w", err)
		}
	}

	p.trained, p.scaler, p.forest = b.Trained, b.Scaler, b.Forest
	p.params = b.Params
	if b.Version != "" {
		p.version = b.Version
	}
	return nil
}

// SaveFile writes the blob atomically via a temp file in the same directory.
func (p *Predictor) SaveFile(path string) error {
	data, err := p.Save()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace model file: %w", err)
	}
	return nil
}

// LoadFile loads a blob from path. A missing file returns an error wrapping
// os.ErrNotExist and leaves the predictor untouched.
func (p *Predictor) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read model file: %w", err)
	}
	return p.Load(data)
}
