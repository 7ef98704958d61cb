// Package classifier runs an exported artifact bundle the way the mobile
// app does: scale, invoke, argmax.
package classifier

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/export"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/mobile"
)

// ErrBundleMismatch is returned when the artifacts of a bundle disagree.
var ErrBundleMismatch = errors.New("artifact bundle mismatch")

// Prediction is the classifier output for one vector.
type Prediction struct {
	Label      string
	ClassID    int
	Confidence float64
}

// Classifier holds a loaded bundle.
type Classifier struct {
	interp mobile.Interpreter
	labels []string
	scaler *features.StandardScaler
}

// Load reads gesture_model.tflite, labels.txt and scaler_params.json from
// dir. Every unreadable artifact is reported, not only the first.
func Load(dir string) (*Classifier, error) {
	paths := export.ArtifactsIn(dir)

	var result *multierror.Error

	model, err := os.ReadFile(paths.Model)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("read model: %w", err))
	}
	labels, err := export.ReadLabels(paths.Labels)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("read labels: %w", err))
	}
	scaler, err := export.ReadScaler(paths.Scaler)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("read scaler: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	interp, err := mobile.Load(model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	c, err := New(interp, labels, scaler)
	if err != nil {
		interp.Close()
		return nil, err
	}
	return c, nil
}

// New assembles a classifier from loaded parts, checking that the label
// count matches the model outputs and the scaler matches its inputs.
func New(interp mobile.Interpreter, labels []string, scaler *features.StandardScaler) (*Classifier, error) {
	if len(labels) != interp.OutputSize() {
		return nil, fmt.Errorf("%w: %d labels, model has %d outputs",
			ErrBundleMismatch, len(labels), interp.OutputSize())
	}
	if scaler.NFeatures != interp.InputSize() {
		return nil, fmt.Errorf("%w: scaler has %d features, model has %d inputs",
			ErrBundleMismatch, scaler.NFeatures, interp.InputSize())
	}
	return &Classifier{interp: interp, labels: labels, scaler: scaler}, nil
}

// Labels returns the class names in output order.
func (c *Classifier) Labels() []string {
	return c.labels
}

// Classify scales v and returns the most probable class.
func (c *Classifier) Classify(v dataset.Vector) (Prediction, error) {
	scaled := c.scaler.Transform(v[:])
	input := make([]float32, len(scaled))
	for i, x := range scaled {
		input[i] = float32(x)
	}

	probs, err := c.interp.Invoke(input)
	if err != nil {
		return Prediction{}, fmt.Errorf("invoke: %w", err)
	}
	if len(probs) != len(c.labels) {
		return Prediction{}, fmt.Errorf("%w: %d outputs, %d labels", ErrBundleMismatch, len(probs), len(c.labels))
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return Prediction{
		Label:      c.labels[best],
		ClassID:    best,
		Confidence: float64(probs[best]),
	}, nil
}

// Close releases the interpreter.
func (c *Classifier) Close() error {
	return c.interp.Close()
}
