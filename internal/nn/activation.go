package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Activation names the non-linearity applied by a Dense layer.
type Activation string

const (
	Linear  Activation = "linear"
	ReLU    Activation = "relu"
	Softmax Activation = "softmax"
)

// ParseActivation validates an activation name.
func ParseActivation(s string) (Activation, error) {
	switch a := Activation(s); a {
	case Linear, ReLU, Softmax:
		return a, nil
	}
	return "", fmt.Errorf("unknown activation %q", s)
}

// apply runs the activation in place over the rows of z.
func (a Activation) apply(z *mat.Dense) {
	r, _ := z.Dims()
	switch a {
	case ReLU:
		raw := z.RawMatrix().Data
		for i, v := range raw {
			if v < 0 {
				raw[i] = 0
			}
		}
	case Softmax:
		for i := 0; i < r; i++ {
			softmaxRow(z.RawRowView(i))
		}
	}
}

// softmaxRow replaces row with its softmax.
func softmaxRow(row []float64) {
	maxV := floats.Max(row)
	var sum float64
	for j, v := range row {
		e := math.Exp(v - maxV)
		row[j] = e
		sum += e
	}
	floats.Scale(1/sum, row)
}

// probEpsilon clips probabilities inside the cross-entropy log.
const probEpsilon = 1e-7

// crossEntropy returns the mean sparse categorical cross-entropy of probs
// against y, and the number of rows whose argmax equals y.
func crossEntropy(probs *mat.Dense, y []int) (loss float64, correct int) {
	r, _ := probs.Dims()
	for i := 0; i < r; i++ {
		row := probs.RawRowView(i)
		p := math.Min(math.Max(row[y[i]], probEpsilon), 1-probEpsilon)
		loss -= math.Log(p)
		if floats.MaxIdx(row) == y[i] {
			correct++
		}
	}
	return loss / float64(r), correct
}

// softmaxGrad returns the gradient of mean cross-entropy with respect to
// the logits feeding a softmax: (p - onehot(y)) / m.
func softmaxGrad(probs *mat.Dense, y []int) *mat.Dense {
	r, _ := probs.Dims()
	grad := mat.DenseCopyOf(probs)
	for i := 0; i < r; i++ {
		grad.Set(i, y[i], grad.At(i, y[i])-1)
	}
	grad.Scale(1/float64(r), grad)
	return grad
}
