package trainer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/nn"
)

func clusteredDataset(perClass int, labels ...string) *dataset.Dataset {
	rng := rand.New(rand.NewSource(11))
	ds := dataset.New()
	for c, label := range labels {
		for i := 0; i < perClass; i++ {
			var v dataset.Vector
			for j := range v {
				v[j] = 0.2 + 0.3*float64(c) + rng.Float64()*0.05
			}
			ds.Append(dataset.Sample{Features: v, Label: label})
		}
	}
	return ds
}

func prepared(t *testing.T, perClass int, labels ...string) *features.Prepared {
	t.Helper()
	p, err := features.Prepare(clusteredDataset(perClass, labels...), features.DefaultOptions())
	require.NoError(t, err)
	return p
}

func TestTrainer_Build(t *testing.T) {
	net := New(DefaultConfig()).Build(dataset.NumFeatures, 3)

	dense := net.DenseLayers()
	require.Len(t, dense, 3)
	assert.Len(t, net.Layers(), 5)

	assert.Equal(t, 128, dense[0].Out())
	assert.Equal(t, nn.ReLU, dense[0].Activation())
	assert.Equal(t, 64, dense[1].Out())
	assert.Equal(t, nn.ReLU, dense[1].Activation())
	assert.Equal(t, 3, dense[2].Out())
	assert.Equal(t, nn.Softmax, dense[2].Activation())

	rates := []float64{}
	for _, l := range net.Layers() {
		if d, ok := l.(*nn.Dropout); ok {
			rates = append(rates, d.Rate())
		}
	}
	assert.Equal(t, []float64{0.3, 0.2}, rates)
}

func TestTrainer_Train(t *testing.T) {
	p := prepared(t, 10, "fist", "palm")

	result, err := New(DefaultConfig()).Train(p)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Accuracy, 0.0)
	assert.LessOrEqual(t, result.Accuracy, 1.0)
	assert.LessOrEqual(t, result.History.Len(), 100)
	assert.GreaterOrEqual(t, result.History.BestEpoch, 1)

	require.NotNil(t, result.Report)
	assert.Equal(t, 4, result.Report.Support)
	assert.InDelta(t, result.Accuracy, result.Report.Accuracy, 1e-12)
	for _, c := range result.Report.Classes {
		assert.Equal(t, 2, c.Support)
	}
}

func TestTrainer_Holdout(t *testing.T) {
	p := prepared(t, 25, "fist", "palm", "wave")

	cfg := DefaultConfig()
	cfg.Validation = ValidationHoldout
	cfg.Epochs = 20

	result, err := New(cfg).Train(p)
	require.NoError(t, err)
	assert.Equal(t, 15, result.Report.Support)

	cfg.Validation = "train"
	_, err = New(cfg).Train(p)
	assert.Error(t, err)
}

func TestTrainer_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 5

	a, err := New(cfg).Train(prepared(t, 10, "fist", "palm"))
	require.NoError(t, err)
	b, err := New(cfg).Train(prepared(t, 10, "fist", "palm"))
	require.NoError(t, err)

	assert.Equal(t, a.History.Epochs, b.History.Epochs)
	assert.Equal(t, a.Loss, b.Loss)
}
