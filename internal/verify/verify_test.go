package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/mudra/internal/lite"
	"github.com/ayusman/mudra/internal/mobile"
	"github.com/ayusman/mudra/internal/nn"
)

// countingInterpreter predicts class 1 when the first feature is positive.
type countingInterpreter struct {
	calls  int
	closed bool
}

func (c *countingInterpreter) InputSize() int  { return 2 }
func (c *countingInterpreter) OutputSize() int { return 2 }
func (c *countingInterpreter) Close() error    { c.closed = true; return nil }

func (c *countingInterpreter) Invoke(in []float32) ([]float32, error) {
	c.calls++
	if in[0] > 0 {
		return []float32{0.1, 0.9}, nil
	}
	return []float32{0.8, 0.2}, nil
}

func TestVerifier_Verify(t *testing.T) {
	interp := &countingInterpreter{}
	v := NewWithLoader(func([]byte) (mobile.Interpreter, error) { return interp, nil })

	x := mat.NewDense(4, 2, []float64{
		1, 0,
		-1, 0,
		2, 0,
		-3, 0,
	})

	acc, err := v.Verify(nil, x, []int{1, 0, 0, 0})
	require.NoError(t, err)

	assert.Equal(t, 0.75, acc)
	assert.Equal(t, 4, interp.calls, "one invocation per sample")
	assert.True(t, interp.closed)
}

func TestVerifier_Errors(t *testing.T) {
	interp := &countingInterpreter{}
	v := NewWithLoader(func([]byte) (mobile.Interpreter, error) { return interp, nil })

	_, err := v.Verify(nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptyTestSet)

	_, err = v.Verify(nil, mat.NewDense(1, 2, nil), []int{0, 1})
	assert.Error(t, err)

	_, err = v.Verify(nil, mat.NewDense(1, 3, nil), []int{0})
	assert.Error(t, err, "feature count mismatch")

	failing := NewWithLoader(func([]byte) (mobile.Interpreter, error) { return nil, errors.New("bad model") })
	_, err = failing.Verify(nil, mat.NewDense(1, 2, nil), []int{0})
	assert.Error(t, err)
}

func TestVerifier_ExportedModel(t *testing.T) {
	net := nn.NewNetwork(3, 1).Dense(4, nn.ReLU).Dense(2, nn.Softmax)
	model, err := lite.Convert(net, lite.Options{Float16: true})
	require.NoError(t, err)

	x := mat.NewDense(4, 3, []float64{
		0.1, 0.2, 0.3,
		-0.5, 0.4, 1.0,
		2.0, -1.0, 0.0,
		0.0, 0.0, 0.0,
	})
	y := net.PredictClasses(x)

	acc, err := New().Verify(model, x, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)

	_, err = New().Verify([]byte("nope"), x, y)
	assert.Error(t, err)
}
