package e2e

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/export"
	"github.com/ayusman/mudra/internal/fixture"
	"github.com/ayusman/mudra/internal/store"
)

func newConfig(t *testing.T, tmpDir string) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Paths.ImagesDir = filepath.Join(tmpDir, "images")
	cfg.Paths.Dataset = filepath.Join(tmpDir, "hand_landmarks_dataset.csv")
	cfg.Paths.ArtifactDir = filepath.Join(tmpDir, "out")
	cfg.Paths.DataDir = filepath.Join(tmpDir, "data")
	cfg.Training.Epochs = 30
	return cfg
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	cfg := newConfig(t, tmpDir)
	classes := fixture.Classes()
	if err := fixture.WriteTree(cfg.Paths.ImagesDir, classes, 10); err != nil {
		t.Fatalf("WriteTree() error = %v", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath() error = %v", err)
	}
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	application := app.New(cfg, s)
	application.SetDetector(fixture.Detector(classes))
	defer application.Close()

	t.Run("BuildDataset", func(t *testing.T) {
		ds, err := application.Build(cfg.Paths.ImagesDir, cfg.Paths.Dataset, nil)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if ds.Len() != 20 {
			t.Fatalf("rows = %d, want 20", ds.Len())
		}

		raw, err := os.ReadFile(cfg.Paths.Dataset)
		if err != nil {
			t.Fatalf("read dataset: %v", err)
		}
		header := strings.SplitN(string(raw), "\n", 2)[0]
		if header != strings.Join(dataset.Columns(), ",") {
			t.Errorf("header = %q", header)
		}
	})

	var summary *app.Summary
	t.Run("TrainAndExport", func(t *testing.T) {
		sum, err := application.Run(cfg.Paths.Dataset)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		summary = sum

		if sum.TrainSamples != 16 || sum.TestSamples != 4 {
			t.Errorf("split = %d/%d, want 16/4", sum.TrainSamples, sum.TestSamples)
		}
		if sum.Accuracy < 0 || sum.Accuracy > 1 {
			t.Errorf("accuracy = %v", sum.Accuracy)
		}
		if sum.LiteAccuracy == nil {
			t.Error("exported model was not verified")
		}
		if sum.Artifacts != export.ArtifactsIn(cfg.Paths.ArtifactDir) {
			t.Errorf("artifacts = %+v", sum.Artifacts)
		}

		var out bytes.Buffer
		sum.Print(&out)
		if !strings.Contains(out.String(), "Quantized accuracy:") {
			t.Errorf("summary missing quantized accuracy:\n%s", out.String())
		}
	})

	t.Run("ClassifyWithBundle", func(t *testing.T) {
		c, err := classifier.Load(cfg.Paths.ArtifactDir)
		if err != nil {
			t.Fatalf("classifier.Load() error = %v", err)
		}
		defer c.Close()

		if got := c.Labels(); len(got) != 2 || got[0] != "fist" || got[1] != "palm" {
			t.Errorf("labels = %v", got)
		}

		for _, cl := range classes {
			hand := cl.Hand
			pred, err := c.Classify(dataset.Vector(hand.Vector2D()))
			if err != nil {
				t.Fatalf("Classify(%s) error = %v", cl.Label, err)
			}
			if pred.Confidence < 0 || pred.Confidence > 1 {
				t.Errorf("Classify(%s) confidence = %v", cl.Label, pred.Confidence)
			}
		}
	})

	t.Run("RunRecorded", func(t *testing.T) {
		if summary == nil {
			t.Skip("training failed")
		}
		runs, err := s.Runs().List(10)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(runs) != 1 || runs[0].ID != summary.RunID {
			t.Fatalf("runs = %+v, want one run %s", runs, summary.RunID)
		}
		if runs[0].Status != store.RunStatusSucceeded {
			t.Errorf("status = %s", runs[0].Status)
		}
	})
}

func TestE2E_CorrectedPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	cfg := newConfig(t, tmpDir)
	cfg.Features.ScalerFit = "train"
	cfg.Training.Validation = "holdout"
	cfg.Export.Float16 = false
	cfg.Plot.Enabled = false

	classes := fixture.Classes()
	if err := fixture.WriteTree(cfg.Paths.ImagesDir, classes, 12); err != nil {
		t.Fatalf("WriteTree() error = %v", err)
	}

	application := app.New(cfg, nil)
	application.SetDetector(fixture.Detector(classes))
	defer application.Close()

	if _, err := application.Build(cfg.Paths.ImagesDir, cfg.Paths.Dataset, nil); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	sum, err := application.Run(cfg.Paths.Dataset)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.RunID != "" {
		t.Errorf("run recorded without a store: %s", sum.RunID)
	}
	if sum.HistoryPlot != "" {
		t.Errorf("plot written while disabled: %s", sum.HistoryPlot)
	}
	if sum.TestSamples != 5 {
		t.Errorf("test samples = %d, want 5", sum.TestSamples)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.ArtifactDir, "training_history.png")); !os.IsNotExist(err) {
		t.Errorf("unexpected history plot: %v", err)
	}
}
