// Package export writes the mobile artifact bundle: the quantized model,
// the label list and the scaler parameters.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/lite"
	"github.com/ayusman/mudra/internal/nn"
)

// Artifact file names read by the mobile runtime.
const (
	ModelFile  = "gesture_model.tflite"
	LabelsFile = "labels.txt"
	ScalerFile = "scaler_params.json"
)

// Options control Export.
type Options struct {
	// Dir receives the artifacts. It is created if missing.
	Dir string
	// Float16 compresses weights to half precision.
	Float16 bool
	// CalibrationSamples is the size of the synthetic representative
	// dataset.
	CalibrationSamples int
	Seed               int64
}

// DefaultOptions exports float16 weights calibrated on 100 random rows
// into the working directory.
func DefaultOptions() Options {
	return Options{
		Dir:                ".",
		Float16:            true,
		CalibrationSamples: 100,
		Seed:               42,
	}
}

// Artifacts lists the paths of an exported bundle.
type Artifacts struct {
	Model  string
	Labels string
	Scaler string
}

// ArtifactsIn returns the bundle paths inside dir.
func ArtifactsIn(dir string) Artifacts {
	return Artifacts{
		Model:  filepath.Join(dir, ModelFile),
		Labels: filepath.Join(dir, LabelsFile),
		Scaler: filepath.Join(dir, ScalerFile),
	}
}

// ScalerParams is the JSON form of the scaler.
type ScalerParams struct {
	Mean       []float64 `json:"mean"`
	Scale      []float64 `json:"scale"`
	Var        []float64 `json:"var"`
	NFeatures  int       `json:"n_features"`
	ScalerType string    `json:"scaler_type"`
}

// Exporter converts and persists trained models.
type Exporter struct {
	opts Options
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Artifacts returns where Export writes.
func (e *Exporter) Artifacts() Artifacts {
	return ArtifactsIn(e.opts.Dir)
}

// Export quantizes model and writes the bundle. It returns the model
// bytes.
func (e *Exporter) Export(model *nn.Network, labels *features.LabelEncoder, scaler *features.StandardScaler) ([]byte, error) {
	if labels.Len() != model.Outputs() {
		return nil, fmt.Errorf("%d labels for %d model outputs", labels.Len(), model.Outputs())
	}
	if scaler.NFeatures != model.Inputs() {
		return nil, fmt.Errorf("scaler has %d features, model expects %d", scaler.NFeatures, model.Inputs())
	}

	log.Info("Converting model to TensorFlow Lite")

	data, err := lite.Convert(model, lite.Options{
		Float16:        e.opts.Float16,
		Representative: lite.RandomDataset(e.opts.CalibrationSamples, model.Inputs(), e.opts.Seed),
	})
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	if err := os.MkdirAll(e.opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", e.opts.Dir, err)
	}
	paths := e.Artifacts()

	if err := os.WriteFile(paths.Model, data, 0644); err != nil {
		return nil, fmt.Errorf("write model: %w", err)
	}
	log.Infof("TensorFlow Lite model saved as %s", paths.Model)
	log.Infof("Model size: %.2f KB", float64(len(data))/1024)

	if err := WriteLabels(paths.Labels, labels.Classes()); err != nil {
		return nil, err
	}
	if err := WriteScaler(paths.Scaler, scaler); err != nil {
		return nil, err
	}

	return data, nil
}

// WriteLabels writes one label per line; line i is class id i.
func WriteLabels(path string, classes []string) error {
	var b strings.Builder
	for _, c := range classes {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	return nil
}

// ReadLabels reads a label list written by WriteLabels. Only line
// terminators are stripped; blank lines are skipped.
func ReadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// WriteScaler writes scaler parameters as 2-space indented JSON.
func WriteScaler(path string, s *features.StandardScaler) error {
	params := ScalerParams{
		Mean:       s.Mean,
		Scale:      s.Scale,
		Var:        s.Var,
		NFeatures:  s.NFeatures,
		ScalerType: features.ScalerType,
	}
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write scaler: %w", err)
	}
	return nil
}

// ReadScaler loads parameters written by WriteScaler.
func ReadScaler(path string) (*features.StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var params ScalerParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if params.ScalerType != features.ScalerType {
		return nil, fmt.Errorf("unsupported scaler type %q", params.ScalerType)
	}

	s := &features.StandardScaler{
		Mean:      params.Mean,
		Scale:     params.Scale,
		Var:       params.Var,
		NFeatures: params.NFeatures,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
