package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler(t *testing.T) {
	rows := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
		{4, 40, 5},
	}

	s, err := FitScaler(rows)
	require.NoError(t, err)

	assert.Equal(t, 3, s.NFeatures)
	assert.InDeltaSlice(t, []float64{2.5, 25, 5}, s.Mean, 1e-12)
	// Population variance: mean of squared deviations.
	assert.InDeltaSlice(t, []float64{1.25, 125, 0}, s.Var, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[2], "constant feature gets unit scale")
	require.NoError(t, s.Validate())

	t.Run("transformed columns are standardized", func(t *testing.T) {
		var sum, sq float64
		for _, r := range rows {
			v := s.Transform(r)[1]
			sum += v
			sq += v * v
		}
		assert.InDelta(t, 0, sum/4, 1e-12)
		assert.InDelta(t, 1, sq/4, 1e-12)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, r := range append(rows, []float64{-7.5, 0.001, 123}) {
			assert.InDeltaSlice(t, r, s.InverseTransform(s.Transform(r)), 1e-9)
		}
	})
}

func TestFitScaler_Errors(t *testing.T) {
	_, err := FitScaler(nil)
	assert.Error(t, err)

	_, err = FitScaler([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestStandardScaler_Validate(t *testing.T) {
	s := &StandardScaler{Mean: []float64{0}, Scale: []float64{1}, Var: []float64{1}, NFeatures: 2}
	assert.Error(t, s.Validate())

	s = &StandardScaler{Mean: []float64{0}, Scale: []float64{0}, Var: []float64{0}, NFeatures: 1}
	assert.Error(t, s.Validate())
}
