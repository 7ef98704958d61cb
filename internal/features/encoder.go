package features

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownLabel is returned when encoding a label that was not fitted.
var ErrUnknownLabel = errors.New("unknown label")

// LabelEncoder maps class labels to contiguous ids 0..K-1 in sorted
// label order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitLabels builds an encoder from the distinct values of labels.
func FitLabels(labels []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)
	return NewLabelEncoder(classes)
}

// NewLabelEncoder restores an encoder whose id i is classes[i], as read
// back from labels.txt.
func NewLabelEncoder(classes []string) *LabelEncoder {
	e := &LabelEncoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range e.classes {
		e.index[c] = i
	}
	return e
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int {
	return len(e.classes)
}

// Classes returns the labels ordered by id.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Encode returns the id of label.
func (e *LabelEncoder) Encode(label string) (int, error) {
	id, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return id, nil
}

// EncodeAll encodes every label in order.
func (e *LabelEncoder) EncodeAll(labels []string) ([]int, error) {
	ids := make([]int, len(labels))
	for i, l := range labels {
		id, err := e.Encode(l)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Decode returns the label for id.
func (e *LabelEncoder) Decode(id int) (string, error) {
	if id < 0 || id >= len(e.classes) {
		return "", fmt.Errorf("class id %d out of range [0,%d)", id, len(e.classes))
	}
	return e.classes[id], nil
}
