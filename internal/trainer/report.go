package trainer

import (
	"fmt"
	"math"
	"strings"

	"github.com/sjwhitworth/golearn/evaluation"

	"github.com/ayusman/mudra/internal/features"
)

// ClassReport holds the metrics of one class, or of an average row.
type ClassReport struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a per-class classification report keyed by the original
// string labels.
type Report struct {
	Classes     []ClassReport
	Accuracy    float64
	MacroAvg    ClassReport
	WeightedAvg ClassReport
	Support     int

	Confusion evaluation.ConfusionMatrix
}

// NewReport compares predicted class ids with the truth.
func NewReport(labels *features.LabelEncoder, yTrue, yPred []int) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("report: %d labels, %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("report: no samples")
	}

	classes := labels.Classes()
	cm := make(evaluation.ConfusionMatrix, len(classes))
	for _, c := range classes {
		cm[c] = make(map[string]int, len(classes))
	}
	for i := range yTrue {
		actual, err := labels.Decode(yTrue[i])
		if err != nil {
			return nil, err
		}
		predicted, err := labels.Decode(yPred[i])
		if err != nil {
			return nil, err
		}
		cm[actual][predicted]++
	}

	r := &Report{
		Accuracy:  evaluation.GetAccuracy(cm),
		Support:   len(yTrue),
		Confusion: cm,
		MacroAvg:  ClassReport{Label: "macro avg", Support: len(yTrue)},
		WeightedAvg: ClassReport{
			Label:   "weighted avg",
			Support: len(yTrue),
		},
	}

	for _, c := range classes {
		support := 0
		for _, n := range cm[c] {
			support += n
		}

		cr := ClassReport{
			Label:     c,
			Precision: zeroNaN(evaluation.GetPrecision(c, cm)),
			Recall:    zeroNaN(evaluation.GetRecall(c, cm)),
			Support:   support,
		}
		if cr.Precision+cr.Recall > 0 {
			cr.F1 = 2 * cr.Precision * cr.Recall / (cr.Precision + cr.Recall)
		}
		r.Classes = append(r.Classes, cr)

		k := float64(len(classes))
		w := float64(support) / float64(len(yTrue))
		r.MacroAvg.Precision += cr.Precision / k
		r.MacroAvg.Recall += cr.Recall / k
		r.MacroAvg.F1 += cr.F1 / k
		r.WeightedAvg.Precision += cr.Precision * w
		r.WeightedAvg.Recall += cr.Recall * w
		r.WeightedAvg.F1 += cr.F1 * w
	}

	return r, nil
}

// Class returns the row for label.
func (r *Report) Class(label string) (ClassReport, bool) {
	for _, c := range r.Classes {
		if c.Label == label {
			return c, true
		}
	}
	return ClassReport{}, false
}

// String renders the report as an aligned text table.
func (r *Report) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		width = max(width, len(c.Label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %10s %10s %10s %10s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(c ClassReport) {
		fmt.Fprintf(&b, "%*s %10.2f %10.2f %10.2f %10d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %10s %10s %10.2f %10d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

// zeroNaN maps the 0/0 of a class that was never predicted (or never
// present) to 0.
func zeroNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
