// Package nn is a small sequential dense network trained with Adam on
// sparse categorical cross-entropy.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNonFiniteLoss is returned when training diverges.
var ErrNonFiniteLoss = errors.New("non-finite training loss")

// Network is a stack of layers ending in a softmax Dense layer.
type Network struct {
	inputs int
	width  int
	layers []Layer
	rng    *rand.Rand
}

// NewNetwork starts an empty network over inputs features. All weight
// initialization, dropout masks and batch shuffling draw from seed.
func NewNetwork(inputs int, seed int64) *Network {
	return &Network{
		inputs: inputs,
		width:  inputs,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Dense appends a fully connected layer.
func (n *Network) Dense(units int, act Activation) *Network {
	n.layers = append(n.layers, NewDense(n.width, units, act, n.rng))
	n.width = units
	return n
}

// Dropout appends a dropout layer.
func (n *Network) Dropout(rate float64) *Network {
	n.layers = append(n.layers, NewDropout(rate, n.rng))
	return n
}

// Inputs returns the number of input features.
func (n *Network) Inputs() int { return n.inputs }

// Outputs returns the number of output units.
func (n *Network) Outputs() int { return n.width }

// Layers returns every layer in order.
func (n *Network) Layers() []Layer { return n.layers }

// DenseLayers returns the fully connected layers in order, skipping
// layers that are inert at inference.
func (n *Network) DenseLayers() []*Dense {
	var out []*Dense
	for _, l := range n.layers {
		if d, ok := l.(*Dense); ok {
			out = append(out, d)
		}
	}
	return out
}

func (n *Network) validate() error {
	dense := n.DenseLayers()
	if len(dense) == 0 {
		return errors.New("network has no dense layers")
	}
	if dense[len(dense)-1].Activation() != Softmax {
		return errors.New("last dense layer must use softmax")
	}
	return nil
}

func (n *Network) forward(x *mat.Dense, training bool) *mat.Dense {
	out := x
	for _, l := range n.layers {
		out = l.Forward(out, training)
	}
	return out
}

func (n *Network) params() []*Param {
	var out []*Param
	for _, l := range n.layers {
		out = append(out, l.Params()...)
	}
	return out
}

// Predict returns class probabilities, one row per input row.
func (n *Network) Predict(x *mat.Dense) *mat.Dense {
	return n.forward(x, false)
}

// PredictClasses returns the argmax class of every input row.
func (n *Network) PredictClasses(x *mat.Dense) []int {
	probs := n.Predict(x)
	r, _ := probs.Dims()
	out := make([]int, r)
	for i := range out {
		out[i] = floats.MaxIdx(probs.RawRowView(i))
	}
	return out
}

// Evaluate returns the mean cross-entropy loss and accuracy over (x, y).
func (n *Network) Evaluate(x *mat.Dense, y []int) (loss, accuracy float64, err error) {
	r, _ := x.Dims()
	if r == 0 || r != len(y) {
		return 0, 0, fmt.Errorf("evaluate: %d rows, %d labels", r, len(y))
	}
	loss, correct := crossEntropy(n.Predict(x), y)
	return loss, float64(correct) / float64(r), nil
}

// snapshot copies every trainable parameter.
func (n *Network) snapshot() []*mat.Dense {
	params := n.params()
	out := make([]*mat.Dense, len(params))
	for i, p := range params {
		out[i] = mat.DenseCopyOf(p.Value)
	}
	return out
}

// restore loads parameters saved by snapshot.
func (n *Network) restore(saved []*mat.Dense) {
	for i, p := range n.params() {
		p.Value.Copy(saved[i])
	}
}

// FitConfig controls Fit.
type FitConfig struct {
	Epochs    int
	BatchSize int
	Optimizer *Adam
	Callbacks []Callback
}

// Fit trains on (x, y), evaluating on (xVal, yVal) after every epoch.
// Rows are reshuffled each epoch.
func (n *Network) Fit(x *mat.Dense, y []int, xVal *mat.Dense, yVal []int, cfg FitConfig) (History, error) {
	history := History{BestEpoch: -1}

	if err := n.validate(); err != nil {
		return history, err
	}
	rows, cols := x.Dims()
	if rows == 0 || rows != len(y) {
		return history, fmt.Errorf("fit: %d rows, %d labels", rows, len(y))
	}
	if cols != n.inputs {
		return history, fmt.Errorf("fit: %d features, network expects %d", cols, n.inputs)
	}
	for _, c := range y {
		if c < 0 || c >= n.width {
			return history, fmt.Errorf("fit: class id %d out of range [0,%d)", c, n.width)
		}
	}
	if xVal == nil {
		return history, errors.New("fit: no validation data")
	}
	if cfg.Epochs <= 0 || cfg.BatchSize <= 0 {
		return history, fmt.Errorf("fit: epochs %d, batch size %d", cfg.Epochs, cfg.BatchSize)
	}
	opt := cfg.Optimizer
	if opt == nil {
		opt = NewAdam(0.001)
	}

	state := &State{Network: n, Optimizer: opt}
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var lossSum float64
		var correct int
		for start := 0; start < rows; start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, rows)
			bx, by := batch(x, y, order[start:end])

			probs := n.forward(bx, true)
			loss, c := crossEntropy(probs, by)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return history, fmt.Errorf("%w at epoch %d", ErrNonFiniteLoss, epoch+1)
			}
			lossSum += loss * float64(end-start)
			correct += c

			grad := softmaxGrad(probs, by)
			for i := len(n.layers) - 1; i >= 0; i-- {
				grad = n.layers[i].Backward(grad)
			}
			opt.Step(n.params())
		}

		e := Epoch{
			Epoch:        epoch + 1,
			Loss:         lossSum / float64(rows),
			Accuracy:     float64(correct) / float64(rows),
			LearningRate: opt.LearningRate,
		}
		valLoss, valAcc, err := n.Evaluate(xVal, yVal)
		if err != nil {
			return history, fmt.Errorf("validation: %w", err)
		}
		e.ValLoss, e.ValAccuracy = valLoss, valAcc
		history.Epochs = append(history.Epochs, e)

		log.Debugf("Epoch %d/%d - loss: %.4f - accuracy: %.4f - val_loss: %.4f - val_accuracy: %.4f - lr: %g",
			e.Epoch, cfg.Epochs, e.Loss, e.Accuracy, e.ValLoss, e.ValAccuracy, e.LearningRate)

		stop := false
		for _, cb := range cfg.Callbacks {
			s, err := cb.EpochEnd(state, e)
			if err != nil {
				return history, err
			}
			stop = stop || s
		}
		if stop {
			history.StoppedEarly = epoch+1 < cfg.Epochs
			break
		}
	}

	for _, cb := range cfg.Callbacks {
		cb.TrainEnd(state, &history)
	}

	return history, nil
}

func batch(x *mat.Dense, y []int, idx []int) (*mat.Dense, []int) {
	_, c := x.Dims()
	bx := mat.NewDense(len(idx), c, nil)
	by := make([]int, len(idx))
	for i, k := range idx {
		bx.SetRow(i, x.RawRowView(k))
		by[i] = y[k]
	}
	return bx, by
}
