package app

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/chart"
	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/export"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/nn"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/trainer"
)

// Pipeline stages that abort a run when they fail.
const (
	StageLoad    = "load dataset"
	StagePrepare = "prepare data"
	StageTrain   = "train model"
	StageExport  = "export model"
)

// StageError reports the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Summary is the outcome of a successful training run.
type Summary struct {
	// RunID is empty when the run could not be recorded.
	RunID        string
	Samples      int
	Dropped      int
	Labels       []string
	TrainSamples int
	TestSamples  int
	Accuracy     float64
	Loss         float64
	// LiteAccuracy is nil when the exported model could not be verified.
	LiteAccuracy *float64
	ModelSize    int
	Artifacts    export.Artifacts
	// HistoryPlot is empty when no chart was written.
	HistoryPlot string
	History     nn.History
	Report      *trainer.Report
	Duration    time.Duration
}

// Print writes a human readable summary.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Samples:            %d (%d train, %d test)\n", s.Samples, s.TrainSamples, s.TestSamples)
	fmt.Fprintf(w, "Classes:            %d %v\n", len(s.Labels), s.Labels)
	fmt.Fprintf(w, "Test accuracy:      %.4f\n", s.Accuracy)
	if s.LiteAccuracy != nil {
		fmt.Fprintf(w, "Quantized accuracy: %.4f\n", *s.LiteAccuracy)
	} else {
		fmt.Fprintf(w, "Quantized accuracy: n/a\n")
	}
	fmt.Fprintf(w, "Model:              %s (%.2f KB)\n", s.Artifacts.Model, float64(s.ModelSize)/1024)
	fmt.Fprintf(w, "Labels:             %s\n", s.Artifacts.Labels)
	fmt.Fprintf(w, "Scaler:             %s\n", s.Artifacts.Scaler)
	if s.HistoryPlot != "" {
		fmt.Fprintf(w, "History plot:       %s\n", s.HistoryPlot)
	}
	if s.RunID != "" {
		fmt.Fprintf(w, "Run:                %s\n", s.RunID)
	}
}

// Run trains a classifier on the dataset at csvPath and exports the mobile
// bundle. Verification, plotting and the run ledger are best-effort.
func (a *App) Run(csvPath string) (*Summary, error) {
	start := time.Now()
	runID := a.startRun(csvPath)

	s, err := a.run(csvPath)
	if err != nil {
		log.Errorf("Pipeline failed: %v", err)
		a.failRun(runID, err)
		return nil, err
	}

	s.Duration = time.Since(start)
	if a.finishRun(runID, s) {
		s.RunID = runID
	}
	return s, nil
}

func (a *App) run(csvPath string) (*Summary, error) {
	ds, err := dataset.ReadCSV(csvPath)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	log.Infof("Loaded %d samples from %s", ds.Len(), csvPath)

	p, err := features.Prepare(ds, featureOptions(a.config))
	if err != nil {
		return nil, &StageError{Stage: StagePrepare, Err: err}
	}

	res, err := trainer.New(trainerConfig(a.config)).Train(p)
	if err != nil {
		return nil, &StageError{Stage: StageTrain, Err: err}
	}

	exporter := export.New(exportOptions(a.config))
	model, err := exporter.Export(res.Model, p.Labels, p.Scaler)
	if err != nil {
		return nil, &StageError{Stage: StageExport, Err: err}
	}

	s := &Summary{
		Samples:      ds.Len() - p.Dropped,
		Dropped:      p.Dropped,
		Labels:       p.Labels.Classes(),
		TrainSamples: len(p.YTrain),
		TestSamples:  len(p.YTest),
		Accuracy:     res.Accuracy,
		Loss:         res.Loss,
		ModelSize:    len(model),
		Artifacts:    exporter.Artifacts(),
		History:      res.History,
		Report:       res.Report,
	}

	a.mu.Lock()
	verifier := a.verifier
	a.mu.Unlock()
	if acc, err := verifier.Verify(model, p.XTest, p.YTest); err != nil {
		log.Warnf("Skipping quantized model verification: %v", err)
	} else {
		s.LiteAccuracy = &acc
	}

	s.HistoryPlot = a.plot(res.History)

	return s, nil
}

// plot writes the history chart and returns its path, or "" when skipped.
func (a *App) plot(h nn.History) string {
	if !a.config.Plot.Enabled {
		return ""
	}
	if !chart.Available() {
		log.Info("Plotting not available, skipping training history chart")
		return ""
	}

	name := a.config.Plot.File
	if name == "" {
		name = chart.HistoryFile
	}
	path := filepath.Join(a.config.Paths.ArtifactDir, name)
	if err := chart.History(path, h); err != nil {
		log.Warnf("Failed to plot training history: %v", err)
		return ""
	}
	log.Infof("Training history saved to %s", path)
	return path
}

func (a *App) startRun(csvPath string) string {
	if a.store == nil {
		return ""
	}
	run := &store.Run{DatasetPath: csvPath, Status: store.RunStatusRunning}
	if err := a.store.Runs().Create(run); err != nil {
		log.Warnf("Failed to record run: %v", err)
		return ""
	}
	return run.ID
}

func (a *App) failRun(runID string, runErr error) {
	if runID == "" {
		return
	}
	if err := a.store.Runs().Fail(runID, runErr); err != nil {
		log.Warnf("Failed to record run failure: %v", err)
	}
}

// finishRun stores the results of s and reports whether they were recorded.
func (a *App) finishRun(runID string, s *Summary) bool {
	if runID == "" {
		return false
	}

	err := a.store.Runs().Finish(runID, store.RunResult{
		Samples:      s.Samples,
		Classes:      len(s.Labels),
		TrainSamples: s.TrainSamples,
		TestSamples:  s.TestSamples,
		Accuracy:     s.Accuracy,
		Loss:         s.Loss,
		LiteAccuracy: s.LiteAccuracy,
		ArtifactDir:  a.config.Paths.ArtifactDir,
	})
	if err != nil {
		log.Warnf("Failed to record run result: %v", err)
		return false
	}

	epochs := make([]store.Epoch, 0, s.History.Len())
	for _, e := range s.History.Epochs {
		epochs = append(epochs, store.Epoch{
			Epoch:        e.Epoch,
			Loss:         e.Loss,
			Accuracy:     e.Accuracy,
			ValLoss:      e.ValLoss,
			ValAccuracy:  e.ValAccuracy,
			LearningRate: e.LearningRate,
		})
	}
	if err := a.store.Epochs().Create(runID, epochs); err != nil {
		log.Warnf("Failed to record training history: %v", err)
	}

	if s.Report != nil {
		classes := make([]store.ClassResult, 0, len(s.Report.Classes))
		for i, c := range s.Report.Classes {
			classes = append(classes, store.ClassResult{
				Label:     c.Label,
				ClassID:   i,
				Precision: c.Precision,
				Recall:    c.Recall,
				F1:        c.F1,
				Support:   c.Support,
			})
		}
		if err := a.store.Classes().Create(runID, classes); err != nil {
			log.Warnf("Failed to record class report: %v", err)
		}
	}
	return true
}
