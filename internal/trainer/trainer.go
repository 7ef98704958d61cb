// Package trainer fits the gesture classifier on prepared features.
package trainer

import (
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/nn"
)

// Validation sources.
const (
	// ValidationTest validates on the test split.
	ValidationTest = "test"
	// ValidationHoldout validates on a stratified slice of the training
	// split.
	ValidationHoldout = "holdout"
)

// Config holds the training hyper-parameters.
type Config struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64

	EarlyStoppingPatience int

	LRFactor   float64
	LRPatience int
	LRMinDelta float64
	MinLR      float64

	Validation  string
	HoldoutSize float64
}

// DefaultConfig returns the standard training setup.
func DefaultConfig() Config {
	return Config{
		Epochs:                100,
		BatchSize:             32,
		LearningRate:          0.001,
		Seed:                  42,
		EarlyStoppingPatience: 15,
		LRFactor:              0.5,
		LRPatience:            8,
		LRMinDelta:            1e-4,
		MinLR:                 1e-6,
		Validation:            ValidationTest,
		HoldoutSize:           0.1,
	}
}

// Result is the outcome of a successful training run.
type Result struct {
	Model    *nn.Network
	Accuracy float64
	Loss     float64
	History  nn.History
	Report   *Report
}

// Trainer builds and fits the classifier.
type Trainer struct {
	config Config
}

// New creates a Trainer.
func New(config Config) *Trainer {
	return &Trainer{config: config}
}

// Build returns an untrained network:
// Dense(128, relu), Dropout(0.3), Dense(64, relu), Dropout(0.2),
// Dense(classes, softmax).
func (t *Trainer) Build(inputs, classes int) *nn.Network {
	return nn.NewNetwork(inputs, t.config.Seed).
		Dense(128, nn.ReLU).
		Dropout(0.3).
		Dense(64, nn.ReLU).
		Dropout(0.2).
		Dense(classes, nn.Softmax)
}

// Train fits a fresh network on p and evaluates it on the test split.
// The returned model carries the weights of the best validation epoch.
func (t *Trainer) Train(p *features.Prepared) (*Result, error) {
	xTrain, yTrain := p.XTrain, p.YTrain
	xVal, yVal := p.XTest, p.YTest

	switch t.config.Validation {
	case ValidationTest, "":
	case ValidationHoldout:
		var err error
		xTrain, yTrain, xVal, yVal, err = t.holdout(p)
		if err != nil {
			return nil, fmt.Errorf("holdout split: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown validation source %q", t.config.Validation)
	}

	model := t.Build(p.NumFeatures(), p.NumClasses())

	log.Infof("Training on %d samples, validating on %d (%s), %d classes",
		len(yTrain), len(yVal), t.validationName(), p.NumClasses())

	history, err := model.Fit(xTrain, yTrain, xVal, yVal, nn.FitConfig{
		Epochs:    t.config.Epochs,
		BatchSize: t.config.BatchSize,
		Optimizer: nn.NewAdam(t.config.LearningRate),
		Callbacks: []nn.Callback{
			nn.NewEarlyStopping(t.config.EarlyStoppingPatience),
			nn.NewReduceLROnPlateau(t.config.LRFactor, t.config.LRPatience, t.config.LRMinDelta, t.config.MinLR),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	loss, acc, err := model.Evaluate(p.XTest, p.YTest)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	log.Infof("Test accuracy: %.4f, test loss: %.4f", acc, loss)

	report, err := NewReport(p.Labels, p.YTest, model.PredictClasses(p.XTest))
	if err != nil {
		return nil, err
	}

	return &Result{
		Model:    model,
		Accuracy: acc,
		Loss:     loss,
		History:  history,
		Report:   report,
	}, nil
}

func (t *Trainer) validationName() string {
	if t.config.Validation == ValidationHoldout {
		return "holdout"
	}
	return "test split"
}

// holdout carves a stratified validation set out of the training split.
func (t *Trainer) holdout(p *features.Prepared) (xTrain *mat.Dense, yTrain []int, xVal *mat.Dense, yVal []int, err error) {
	rng := rand.New(rand.NewSource(t.config.Seed))
	trainIdx, valIdx, err := features.StratifiedSplit(p.YTrain, p.NumClasses(), t.config.HoldoutSize, rng)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	xTrain, yTrain = features.Subset(p.XTrain, p.YTrain, trainIdx)
	xVal, yVal = features.Subset(p.XTrain, p.YTrain, valIdx)
	return xTrain, yTrain, xVal, yVal, nil
}
