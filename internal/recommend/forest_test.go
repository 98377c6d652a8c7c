package recommend

import (
	"math"
	"testing"
)

func TestFitForest_LearnsStep(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		X = append(X, []float64{x, 1})
		if x < 20 {
			y = append(y, 20)
		} else {
			y = append(y, 50)
		}
	}

	f, err := FitForest(X, y, ForestParams{Trees: 25, MaxDepth: 4, MinSamplesSplit: 2, Seed: 42})
	if err != nil {
		t.Fatalf("FitForest() error = %v", err)
	}

	tests := []struct {
		x    float64
		want float64
	}{
		{x: 2, want: 20},
		{x: 35, want: 50},
	}
	for _, tt := range tests {
		got, err := f.Predict([]float64{tt.x, 1})
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		if math.Abs(got-tt.want) > 3 {
			t.Errorf("Predict(%v) = %v, want about %v", tt.x, got, tt.want)
		}
	}
}

func TestFitForest_Deterministic(t *testing.T) {
	X, y := trainingData(10)
	a, err := FitForest(X, y, smallParams())
	if err != nil {
		t.Fatalf("FitForest() error = %v", err)
	}
	b, err := FitForest(X, y, smallParams())
	if err != nil {
		t.Fatalf("FitForest() error = %v", err)
	}

	for _, row := range X {
		pa, _ := a.Predict(row)
		pb, _ := b.Predict(row)
		if pa != pb {
			t.Fatalf("same seed gave %v and %v", pa, pb)
		}
	}
}

func TestFitForest_Errors(t *testing.T) {
	if _, err := FitForest(nil, nil, smallParams()); err == nil {
		t.Error("empty input should fail")
	}
	if _, err := FitForest([][]float64{{1}}, []float64{1, 2}, smallParams()); err == nil {
		t.Error("mismatched labels should fail")
	}

	f, err := FitForest([][]float64{{1}, {2}}, []float64{10, 10}, smallParams())
	if err != nil {
		t.Fatalf("FitForest() error = %v", err)
	}
	if _, err := f.Predict([]float64{1, 2}); err == nil {
		t.Error("wrong feature count should fail")
	}
	if got, _ := f.Predict([]float64{1}); got != 10 {
		t.Errorf("constant labels predicted %v, want 10", got)
	}
}

func TestFitScaler(t *testing.T) {
	s, err := FitScaler([][]float64{{1, 5}, {3, 5}})
	if err != nil {
		t.Fatalf("FitScaler() error = %v", err)
	}
	if s.Mean[0] != 2 || s.Std[0] != 1 || s.Std[1] != 1 {
		t.Errorf("scaler = %+v", s)
	}

	got, err := s.Transform([]float64{3, 5})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("Transform() = %v, want [1 0]", got)
	}
	if _, err := s.Transform([]float64{1}); err == nil {
		t.Error("Transform() with wrong width should fail")
	}
}
