package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is the Adam optimizer with bias-corrected step size.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t int
}

// NewAdam returns an optimizer with the usual defaults and learning rate lr.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// Step applies one update to every parameter from its current gradient.
func (a *Adam) Step(params []*Param) {
	a.t++
	t := float64(a.t)
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))

	for _, p := range params {
		r, c := p.Value.Dims()
		if p.m == nil {
			p.m = mat.NewDense(r, c, nil)
			p.v = mat.NewDense(r, c, nil)
		}

		w := p.Value.RawMatrix().Data
		g := p.Grad.RawMatrix().Data
		m := p.m.RawMatrix().Data
		v := p.v.RawMatrix().Data
		for i := range w {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g[i]
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g[i]*g[i]
			w[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
	}
}

// Iterations returns the number of steps taken.
func (a *Adam) Iterations() int {
	return a.t
}
