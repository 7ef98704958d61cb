package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Layer is one stage of a sequential network.
type Layer interface {
	// Forward maps a batch (one row per sample) to the layer output.
	Forward(x *mat.Dense, training bool) *mat.Dense
	// Backward takes the gradient of the loss with respect to the layer
	// output and returns the gradient with respect to its input.
	Backward(grad *mat.Dense) *mat.Dense
	// Params returns the trainable parameters, if any.
	Params() []*Param
}

// Param is a trainable tensor with its gradient and Adam moments.
type Param struct {
	Value *mat.Dense
	Grad  *mat.Dense

	m, v *mat.Dense
}

func newParam(r, c int) *Param {
	return &Param{
		Value: mat.NewDense(r, c, nil),
		Grad:  mat.NewDense(r, c, nil),
	}
}

// Dense is a fully connected layer y = act(x·W + b). W has shape
// (in, out).
//
// A Softmax layer is only trained as the output layer: its Backward
// expects the gradient with respect to the logits, as produced by the
// fused softmax cross-entropy loss.
type Dense struct {
	in, out    int
	activation Activation
	w, b       *Param

	x, y *mat.Dense
}

// NewDense creates a layer with Glorot-uniform weights and zero bias.
func NewDense(in, out int, act Activation, rng *rand.Rand) *Dense {
	d := &Dense{
		in:         in,
		out:        out,
		activation: act,
		w:          newParam(in, out),
		b:          newParam(1, out),
	}

	limit := math.Sqrt(6 / float64(in+out))
	raw := d.w.Value.RawMatrix().Data
	for i := range raw {
		raw[i] = (rng.Float64()*2 - 1) * limit
	}

	return d
}

// In returns the input width.
func (d *Dense) In() int { return d.in }

// Out returns the number of units.
func (d *Dense) Out() int { return d.out }

// Activation returns the layer non-linearity.
func (d *Dense) Activation() Activation { return d.activation }

// Weights returns the (in, out) weight matrix. Callers must not modify it.
func (d *Dense) Weights() mat.Matrix { return d.w.Value }

// Bias returns the bias vector. Callers must not modify it.
func (d *Dense) Bias() []float64 { return d.b.Value.RawRowView(0) }

// Forward implements Layer.
func (d *Dense) Forward(x *mat.Dense, training bool) *mat.Dense {
	r, _ := x.Dims()
	z := mat.NewDense(r, d.out, nil)
	z.Mul(x, d.w.Value)

	bias := d.b.Value.RawRowView(0)
	for i := 0; i < r; i++ {
		floats.Add(z.RawRowView(i), bias)
	}
	d.activation.apply(z)

	if training {
		d.x, d.y = x, z
	}
	return z
}

// Backward implements Layer.
func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	dz := grad
	if d.activation == ReLU {
		dz = mat.DenseCopyOf(grad)
		raw := dz.RawMatrix().Data
		out := d.y.RawMatrix().Data
		for i := range raw {
			if out[i] <= 0 {
				raw[i] = 0
			}
		}
	}

	d.w.Grad.Mul(d.x.T(), dz)

	r, _ := dz.Dims()
	db := d.b.Grad.RawRowView(0)
	for j := range db {
		db[j] = 0
	}
	for i := 0; i < r; i++ {
		floats.Add(db, dz.RawRowView(i))
	}

	dx := mat.NewDense(r, d.in, nil)
	dx.Mul(dz, d.w.Value.T())
	return dx
}

// Params implements Layer.
func (d *Dense) Params() []*Param {
	return []*Param{d.w, d.b}
}

// Dropout zeroes a fraction of its inputs during training and rescales
// the rest so the expected activation is unchanged. It is the identity at
// inference.
type Dropout struct {
	rate float64
	rng  *rand.Rand
	mask *mat.Dense
}

// NewDropout creates a dropout layer dropping rate of its inputs.
func NewDropout(rate float64, rng *rand.Rand) *Dropout {
	return &Dropout{rate: rate, rng: rng}
}

// Rate returns the drop probability.
func (d *Dropout) Rate() float64 { return d.rate }

// Forward implements Layer.
func (d *Dropout) Forward(x *mat.Dense, training bool) *mat.Dense {
	if !training || d.rate <= 0 {
		d.mask = nil
		return x
	}

	r, c := x.Dims()
	keep := 1 - d.rate
	d.mask = mat.NewDense(r, c, nil)
	mask := d.mask.RawMatrix().Data
	for i := range mask {
		if d.rng.Float64() < keep {
			mask[i] = 1 / keep
		}
	}

	out := mat.NewDense(r, c, nil)
	out.MulElem(x, d.mask)
	return out
}

// Backward implements Layer.
func (d *Dropout) Backward(grad *mat.Dense) *mat.Dense {
	if d.mask == nil {
		return grad
	}
	r, c := grad.Dims()
	out := mat.NewDense(r, c, nil)
	out.MulElem(grad, d.mask)
	return out
}

// Params implements Layer.
func (d *Dropout) Params() []*Param { return nil }
