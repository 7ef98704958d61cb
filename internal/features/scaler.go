package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// ScalerType is the scaler_type recorded next to the parameters.
const ScalerType = "StandardScaler"

// zeroScale is the threshold below which a feature counts as constant.
const zeroScale = 10 * 2.220446049250313e-16

// StandardScaler standardizes features to zero mean and unit variance.
// Variance is the population variance; constant features get scale 1.
type StandardScaler struct {
	Mean      []float64
	Scale     []float64
	Var       []float64
	NFeatures int
}

// FitScaler computes per-column statistics over rows.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("fit scaler: no rows")
	}
	n := len(rows[0])

	s := &StandardScaler{
		Mean:      make([]float64, n),
		Scale:     make([]float64, n),
		Var:       make([]float64, n),
		NFeatures: n,
	}

	col := make(stats.Float64Data, len(rows))
	for j := 0; j < n; j++ {
		for i, row := range rows {
			if len(row) != n {
				return nil, fmt.Errorf("fit scaler: row %d has %d features, want %d", i, len(row), n)
			}
			col[i] = row[j]
		}

		mean, err := stats.Mean(col)
		if err != nil {
			return nil, fmt.Errorf("fit scaler: mean of feature %d: %w", j, err)
		}
		variance, err := stats.PopulationVariance(col)
		if err != nil {
			return nil, fmt.Errorf("fit scaler: variance of feature %d: %w", j, err)
		}

		s.Mean[j] = mean
		s.Var[j] = variance
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] < zeroScale {
			s.Scale[j] = 1
		}
	}

	return s, nil
}

// Transform returns (x - mean) / scale.
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// InverseTransform undoes Transform.
func (s *StandardScaler) InverseTransform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = v*s.Scale[j] + s.Mean[j]
	}
	return out
}

// Validate checks that the parameter arrays agree with NFeatures.
func (s *StandardScaler) Validate() error {
	if s.NFeatures <= 0 {
		return fmt.Errorf("scaler: n_features %d", s.NFeatures)
	}
	if len(s.Mean) != s.NFeatures || len(s.Scale) != s.NFeatures || len(s.Var) != s.NFeatures {
		return fmt.Errorf("scaler: parameter lengths %d/%d/%d, want %d",
			len(s.Mean), len(s.Scale), len(s.Var), s.NFeatures)
	}
	for j, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("scaler: zero scale for feature %d", j)
		}
	}
	return nil
}
