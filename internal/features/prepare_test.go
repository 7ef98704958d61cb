package features

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/dataset"
)

func syntheticDataset(seed int64, counts map[string]int) *dataset.Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := dataset.New()
	offset := 0.0
	for _, label := range []string{"fist", "palm", "wave", "peace"} {
		n, ok := counts[label]
		if !ok {
			continue
		}
		for i := 0; i < n; i++ {
			var v dataset.Vector
			for j := range v {
				v[j] = offset + rng.Float64()*0.1
			}
			ds.Append(dataset.Sample{Features: v, Label: label})
		}
		offset += 0.2
	}
	return ds
}

func TestPrepare_TwoClasses(t *testing.T) {
	ds := syntheticDataset(1, map[string]int{"fist": 10, "palm": 10})

	p, err := Prepare(ds, DefaultOptions())
	require.NoError(t, err)

	rows, cols := p.XTrain.Dims()
	assert.Equal(t, 16, rows)
	assert.Equal(t, dataset.NumFeatures, cols)
	rows, _ = p.XTest.Dims()
	assert.Equal(t, 4, rows)

	assert.Len(t, p.YTrain, 16)
	assert.Len(t, p.YTest, 4)
	assert.Equal(t, 2, p.NumClasses())
	assert.Equal(t, dataset.NumFeatures, p.NumFeatures())
	assert.Equal(t, []string{"fist", "palm"}, p.Labels.Classes())

	count := func(y []int) [2]int {
		var c [2]int
		for _, v := range y {
			c[v]++
		}
		return c
	}
	assert.Equal(t, [2]int{8, 8}, count(p.YTrain))
	assert.Equal(t, [2]int{2, 2}, count(p.YTest))

	for _, v := range p.XTrain.RawMatrix().Data {
		require.False(t, math.IsNaN(v))
	}
}

func TestPrepare_Deterministic(t *testing.T) {
	ds := syntheticDataset(3, map[string]int{"fist": 12, "palm": 9, "wave": 7})

	a, err := Prepare(ds, DefaultOptions())
	require.NoError(t, err)
	b, err := Prepare(ds, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, a.YTrain, b.YTrain)
	assert.Equal(t, a.YTest, b.YTest)
	assert.Equal(t, a.XTest.RawMatrix().Data, b.XTest.RawMatrix().Data)
}

func TestPrepare_DropsIncompleteRows(t *testing.T) {
	ds := syntheticDataset(5, map[string]int{"fist": 10, "palm": 10})
	broken := ds.Samples[0]
	broken.Features[3] = math.NaN()
	ds.Append(broken)
	ds.Append(dataset.Sample{Features: ds.Samples[1].Features})

	p, err := Prepare(ds, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, p.Dropped)
	assert.Equal(t, 20, len(p.YTrain)+len(p.YTest))
}

func TestPrepare_ScalerFit(t *testing.T) {
	ds := syntheticDataset(9, map[string]int{"fist": 10, "palm": 10})

	full, err := Prepare(ds, DefaultOptions())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.ScalerFit = ScalerFitTrain
	train, err := Prepare(ds, opts)
	require.NoError(t, err)

	assert.Equal(t, full.YTrain, train.YTrain, "split does not depend on scaler mode")
	assert.NotEqual(t, full.Scaler.Mean, train.Scaler.Mean)

	// Training columns are exactly standardized when fit on the train split.
	rows, _ := train.XTrain.Dims()
	var sum float64
	for i := 0; i < rows; i++ {
		sum += train.XTrain.At(i, 0)
	}
	assert.InDelta(t, 0, sum/float64(rows), 1e-9)

	opts.ScalerFit = "bogus"
	_, err = Prepare(ds, opts)
	assert.Error(t, err)
}

func TestPrepare_Errors(t *testing.T) {
	tests := []struct {
		name string
		ds   *dataset.Dataset
		opts Options
		want error
	}{
		{name: "nil dataset", ds: nil, opts: DefaultOptions(), want: ErrEmptyDataset},
		{name: "empty dataset", ds: dataset.New(), opts: DefaultOptions(), want: ErrEmptyDataset},
		{name: "single class", ds: syntheticDataset(1, map[string]int{"fist": 10}), opts: DefaultOptions(), want: ErrSingleClass},
		{name: "class too small", ds: syntheticDataset(1, map[string]int{"fist": 10, "palm": 1}), opts: DefaultOptions(), want: ErrClassTooSmall},
		{name: "split too small", ds: syntheticDataset(1, map[string]int{"fist": 2, "palm": 2, "wave": 2}), opts: DefaultOptions(), want: ErrSplitTooSmall},
		{name: "bad test size", ds: syntheticDataset(1, map[string]int{"fist": 10, "palm": 10}), opts: Options{TestSize: 1.2, Seed: 42}, want: ErrInvalidTestSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Prepare(tt.ds, tt.opts)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSubset(t *testing.T) {
	ds := syntheticDataset(2, map[string]int{"fist": 10, "palm": 10})
	p, err := Prepare(ds, DefaultOptions())
	require.NoError(t, err)

	x, y := Subset(p.XTrain, p.YTrain, []int{3, 0})
	rows, _ := x.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, []int{p.YTrain[3], p.YTrain[0]}, y)
	assert.Equal(t, p.XTrain.RawRowView(3), x.RawRowView(0))
}
