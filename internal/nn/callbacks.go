package nn

import (
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// State is what callbacks may inspect and adjust during Fit.
type State struct {
	Network   *Network
	Optimizer *Adam
}

// Callback hooks into the training loop.
type Callback interface {
	// EpochEnd runs after validation; returning true stops training.
	EpochEnd(s *State, e Epoch) (bool, error)
	// TrainEnd runs once after the last epoch.
	TrainEnd(s *State, h *History)
}

// EarlyStopping stops training when Monitor has not improved for Patience
// epochs and then restores the weights of the best epoch.
type EarlyStopping struct {
	Monitor  string
	Patience int
	// Maximize selects mode max (accuracy-like metrics).
	Maximize bool

	best      float64
	bestEpoch int
	wait      int
	weights   []*mat.Dense
}

// NewEarlyStopping watches val_accuracy.
func NewEarlyStopping(patience int) *EarlyStopping {
	return &EarlyStopping{
		Monitor:  MetricValAccuracy,
		Patience: patience,
		Maximize: true,
	}
}

func (c *EarlyStopping) improved(v float64) bool {
	if c.weights == nil {
		return true
	}
	if c.Maximize {
		return v > c.best
	}
	return v < c.best
}

// EpochEnd implements Callback.
func (c *EarlyStopping) EpochEnd(s *State, e Epoch) (bool, error) {
	v, err := e.Metric(c.Monitor)
	if err != nil {
		return false, err
	}

	if c.improved(v) {
		c.best = v
		c.bestEpoch = e.Epoch
		c.wait = 0
		c.weights = s.Network.snapshot()
		return false, nil
	}

	c.wait++
	if c.wait >= c.Patience {
		log.Infof("Early stopping at epoch %d, best %s %.4f at epoch %d", e.Epoch, c.Monitor, c.best, c.bestEpoch)
		return true, nil
	}
	return false, nil
}

// TrainEnd implements Callback.
func (c *EarlyStopping) TrainEnd(s *State, h *History) {
	if c.weights == nil {
		return
	}
	s.Network.restore(c.weights)
	h.BestEpoch = c.bestEpoch
	log.Debugf("Restored weights from epoch %d", c.bestEpoch)
}

// ReduceLROnPlateau multiplies the learning rate by Factor when Monitor
// has not decreased by at least MinDelta for Patience epochs.
type ReduceLROnPlateau struct {
	Monitor  string
	Factor   float64
	Patience int
	MinDelta float64
	MinLR    float64

	best float64
	wait int
	seen bool
}

// NewReduceLROnPlateau watches val_loss.
func NewReduceLROnPlateau(factor float64, patience int, minDelta, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		Monitor:  MetricValLoss,
		Factor:   factor,
		Patience: patience,
		MinDelta: minDelta,
		MinLR:    minLR,
	}
}

// EpochEnd implements Callback.
func (c *ReduceLROnPlateau) EpochEnd(s *State, e Epoch) (bool, error) {
	v, err := e.Metric(c.Monitor)
	if err != nil {
		return false, err
	}

	if !c.seen || v < c.best-c.MinDelta {
		c.best = v
		c.wait = 0
		c.seen = true
		return false, nil
	}

	c.wait++
	if c.wait >= c.Patience {
		old := s.Optimizer.LearningRate
		if old > c.MinLR {
			lr := math.Max(old*c.Factor, c.MinLR)
			s.Optimizer.LearningRate = lr
			log.Debugf("Epoch %d: reducing learning rate to %g", e.Epoch, lr)
		}
		c.wait = 0
	}
	return false, nil
}

// TrainEnd implements Callback.
func (c *ReduceLROnPlateau) TrainEnd(*State, *History) {}
