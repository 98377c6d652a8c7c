package recommend

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each column to zero mean and unit population variance.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes column statistics over X. Constant columns get std 1.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, errors.New("scaler: no rows")
	}
	width := len(X[0])
	s := &Scaler{Mean: make([]float64, width), Std: make([]float64, width)}

	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		for i, row := range X {
			if len(row) != width {
				return nil, fmt.Errorf("scaler: row %d has %d columns, want %d", i, len(row), width)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Std[j] = mean, std
	}
	return s, nil
}

// Transform returns a standardized copy of x.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: got %d features, want %d", len(x), len(s.Mean))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}
