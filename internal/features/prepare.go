// Package features turns a landmark dataset into scaled, encoded, and
// stratified train/test matrices.
package features

import (
	"errors"
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/mudra/internal/dataset"
)

var (
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrSingleClass     = errors.New("dataset has a single class, stratified split needs at least 2")
	ErrClassTooSmall   = errors.New("class has fewer than 2 samples")
	ErrSplitTooSmall   = errors.New("split too small to hold every class")
	ErrInvalidTestSize = errors.New("test size must be in (0, 1)")
)

// Scaler fitting modes.
const (
	// ScalerFitFull fits the scaler on every row before splitting.
	ScalerFitFull = "full"
	// ScalerFitTrain fits the scaler on the training split only.
	ScalerFitTrain = "train"
)

// Options control Prepare.
type Options struct {
	TestSize  float64
	Seed      int64
	ScalerFit string
}

// DefaultOptions returns an 80/20 split seeded with 42, scaler fit on the
// full matrix.
func DefaultOptions() Options {
	return Options{
		TestSize:  0.2,
		Seed:      42,
		ScalerFit: ScalerFitFull,
	}
}

// Prepared holds the model-ready data of one run.
type Prepared struct {
	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain []int
	YTest  []int

	Labels *LabelEncoder
	Scaler *StandardScaler

	// Dropped counts rows removed for missing values.
	Dropped int
}

// NumClasses returns the number of encoded classes.
func (p *Prepared) NumClasses() int {
	return p.Labels.Len()
}

// NumFeatures returns the width of the feature matrices.
func (p *Prepared) NumFeatures() int {
	_, c := p.XTrain.Dims()
	return c
}

// Prepare cleans, encodes, scales and splits ds.
func Prepare(ds *dataset.Dataset, opts Options) (*Prepared, error) {
	if ds == nil {
		return nil, ErrEmptyDataset
	}

	clean, dropped := ds.DropIncomplete()
	if dropped > 0 {
		log.Warnf("Dropped %d rows with missing values", dropped)
	}
	if clean.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	labels := make([]string, clean.Len())
	rows := make([][]float64, clean.Len())
	for i, s := range clean.Samples {
		labels[i] = s.Label
		v := s.Features
		rows[i] = v[:]
	}

	enc := FitLabels(labels)
	if enc.Len() < 2 {
		return nil, fmt.Errorf("%w (%q)", ErrSingleClass, enc.classes[0])
	}
	counts := clean.Counts()
	for _, c := range enc.Classes() {
		if counts[c] < 2 {
			return nil, fmt.Errorf("%w: %q has %d", ErrClassTooSmall, c, counts[c])
		}
	}

	y, err := enc.EncodeAll(labels)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	trainIdx, testIdx, err := StratifiedSplit(y, enc.Len(), opts.TestSize, rng)
	if err != nil {
		return nil, err
	}

	var fitRows [][]float64
	switch opts.ScalerFit {
	case ScalerFitFull, "":
		fitRows = rows
	case ScalerFitTrain:
		fitRows = pick(rows, trainIdx)
	default:
		return nil, fmt.Errorf("unknown scaler fit mode %q", opts.ScalerFit)
	}

	scaler, err := FitScaler(fitRows)
	if err != nil {
		return nil, err
	}

	return &Prepared{
		XTrain:  Matrix(scaler, pick(rows, trainIdx)),
		XTest:   Matrix(scaler, pick(rows, testIdx)),
		YTrain:  pickInts(y, trainIdx),
		YTest:   pickInts(y, testIdx),
		Labels:  enc,
		Scaler:  scaler,
		Dropped: dropped,
	}, nil
}

// Matrix scales rows into a dense matrix, one row per sample.
func Matrix(s *StandardScaler, rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, s.Transform(r))
	}
	return m
}

// Subset copies the rows idx of x and y.
func Subset(x *mat.Dense, y []int, idx []int) (*mat.Dense, []int) {
	if len(idx) == 0 {
		return &mat.Dense{}, nil
	}
	_, c := x.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, k := range idx {
		out.SetRow(i, x.RawRowView(k))
	}
	return out, pickInts(y, idx)
}

func pick(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, k := range idx {
		out[i] = rows[k]
	}
	return out
}

func pickInts(v []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, k := range idx {
		out[i] = v[k]
	}
	return out
}
