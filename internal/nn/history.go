package nn

import "fmt"

// Monitored metric names.
const (
	MetricLoss        = "loss"
	MetricAccuracy    = "accuracy"
	MetricValLoss     = "val_loss"
	MetricValAccuracy = "val_accuracy"
)

// Epoch holds the metrics recorded at the end of one epoch.
type Epoch struct {
	Epoch        int
	Loss         float64
	Accuracy     float64
	ValLoss      float64
	ValAccuracy  float64
	LearningRate float64
}

// Metric returns the value of a named metric.
func (e Epoch) Metric(name string) (float64, error) {
	switch name {
	case MetricLoss:
		return e.Loss, nil
	case MetricAccuracy:
		return e.Accuracy, nil
	case MetricValLoss:
		return e.ValLoss, nil
	case MetricValAccuracy:
		return e.ValAccuracy, nil
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// History is the per-epoch training record.
type History struct {
	Epochs []Epoch
	// BestEpoch is the epoch whose weights were restored, or -1.
	BestEpoch int
	// StoppedEarly is set when a callback ended training before the
	// epoch budget ran out.
	StoppedEarly bool
}

// Len returns the number of completed epochs.
func (h History) Len() int {
	return len(h.Epochs)
}

// Series returns one metric across all epochs.
func (h History) Series(name string) ([]float64, error) {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		v, err := e.Metric(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
