package trainer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/features"
)

func TestNewReport(t *testing.T) {
	labels := features.NewLabelEncoder([]string{"fist", "palm", "wave"})
	yTrue := []int{0, 0, 0, 1, 1, 2}
	yPred := []int{0, 0, 1, 1, 1, 1}

	r, err := NewReport(labels, yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 4.0/6.0, r.Accuracy, 1e-12)
	assert.Equal(t, 6, r.Support)
	assert.Equal(t, 2, r.Confusion["fist"]["fist"])
	assert.Equal(t, 1, r.Confusion["fist"]["palm"])

	fist, ok := r.Class("fist")
	require.True(t, ok)
	assert.InDelta(t, 1.0, fist.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, fist.Recall, 1e-12)
	assert.InDelta(t, 0.8, fist.F1, 1e-12)
	assert.Equal(t, 3, fist.Support)

	palm, _ := r.Class("palm")
	assert.InDelta(t, 0.5, palm.Precision, 1e-12)
	assert.InDelta(t, 1.0, palm.Recall, 1e-12)

	wave, _ := r.Class("wave")
	assert.Zero(t, wave.Precision, "never predicted")
	assert.Zero(t, wave.Recall)
	assert.Zero(t, wave.F1)

	assert.InDelta(t, (1.0+0.5+0)/3, r.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, (3*1.0+2*0.5)/6, r.WeightedAvg.Precision, 1e-12)

	text := r.String()
	assert.True(t, strings.Contains(text, "precision"))
	assert.True(t, strings.Contains(text, "macro avg"))
	assert.True(t, strings.Contains(text, "weighted avg"))
	assert.True(t, strings.Contains(text, "wave"))
}

func TestNewReport_Errors(t *testing.T) {
	labels := features.NewLabelEncoder([]string{"a", "b"})

	_, err := NewReport(labels, []int{0}, []int{0, 1})
	assert.Error(t, err)

	_, err = NewReport(labels, nil, nil)
	assert.Error(t, err)

	_, err = NewReport(labels, []int{0}, []int{2})
	assert.Error(t, err)
}
