// Package verify measures the accuracy of an exported mobile model.
package verify

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/mudra/internal/mobile"
)

// ErrEmptyTestSet is returned when there is nothing to verify.
var ErrEmptyTestSet = errors.New("empty test set")

// Loader turns model bytes into an interpreter.
type Loader func(model []byte) (mobile.Interpreter, error)

// Verifier replays a test set through a mobile interpreter.
type Verifier struct {
	load Loader
}

// New creates a Verifier using the compiled-in mobile runtime.
func New() *Verifier {
	return &Verifier{load: mobile.Load}
}

// NewWithLoader creates a Verifier with a custom runtime.
func NewWithLoader(load Loader) *Verifier {
	return &Verifier{load: load}
}

// Verify runs every row of x as its own invocation and returns the share
// of rows whose argmax matches y.
func (v *Verifier) Verify(model []byte, x *mat.Dense, y []int) (float64, error) {
	if x == nil || len(y) == 0 {
		return 0, ErrEmptyTestSet
	}
	rows, cols := x.Dims()
	if rows != len(y) {
		return 0, fmt.Errorf("%d rows, %d labels", rows, len(y))
	}

	interp, err := v.load(model)
	if err != nil {
		return 0, fmt.Errorf("load model: %w", err)
	}
	defer interp.Close()

	if interp.InputSize() != cols {
		return 0, fmt.Errorf("model expects %d features, test set has %d", interp.InputSize(), cols)
	}

	input := make([]float32, cols)
	correct := 0
	for i := 0; i < rows; i++ {
		for j, val := range x.RawRowView(i) {
			input[j] = float32(val)
		}
		out, err := interp.Invoke(input)
		if err != nil {
			return 0, fmt.Errorf("invoke sample %d: %w", i, err)
		}
		if argmax(out) == y[i] {
			correct++
		}
	}

	acc := float64(correct) / float64(rows)
	log.Infof("TFLite accuracy: %.4f (%d/%d, %s runtime)", acc, correct, rows, mobile.Runtime)
	return acc, nil
}

func argmax(v []float32) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}
