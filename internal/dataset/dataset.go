// Package dataset builds and persists the labeled landmark dataset.
package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Landmark geometry of a single hand.
const (
	NumLandmarks = 21
	NumFeatures  = NumLandmarks * 2
)

// LabelColumn is the CSV column holding the gesture class.
const LabelColumn = "gesture"

// Vector is a landmark vector: x0, y0, ... x20, y20, each a fraction of
// the image size.
type Vector [NumFeatures]float64

// Sample is one labeled landmark vector.
type Sample struct {
	Features Vector
	Label    string
}

// Complete reports whether the sample has a label and no NaN features.
func (s Sample) Complete() bool {
	if s.Label == "" {
		return false
	}
	for _, v := range s.Features {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Dataset is an ordered collection of samples sharing the fixed column
// schema x0,y0,...,x20,y20,gesture.
type Dataset struct {
	Samples []Sample
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Samples)
}

// Append adds a sample to the end of the dataset.
func (d *Dataset) Append(s Sample) {
	d.Samples = append(d.Samples, s)
}

// Counts returns the number of rows per label.
func (d *Dataset) Counts() map[string]int {
	counts := make(map[string]int)
	if d == nil {
		return counts
	}
	for _, s := range d.Samples {
		counts[s.Label]++
	}
	return counts
}

// Labels returns the distinct labels in sorted order.
func (d *Dataset) Labels() []string {
	counts := d.Counts()
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// DropIncomplete returns a copy without rows that have missing values,
// along with the number of rows removed.
func (d *Dataset) DropIncomplete() (*Dataset, int) {
	out := &Dataset{Samples: make([]Sample, 0, d.Len())}
	if d == nil {
		return out, 0
	}
	for _, s := range d.Samples {
		if s.Complete() {
			out.Samples = append(out.Samples, s)
		}
	}
	return out, len(d.Samples) - len(out.Samples)
}

// Columns returns the CSV header: x0,y0,...,x20,y20,gesture.
func Columns() []string {
	cols := make([]string, 0, NumFeatures+1)
	for i := 0; i < NumLandmarks; i++ {
		cols = append(cols, fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i))
	}
	return append(cols, LabelColumn)
}
