// Package app wires the mudra pipeline together: dataset harvesting,
// training, export, verification and the run ledger.
package app

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/export"
	"github.com/ayusman/mudra/internal/extract"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/trainer"
	"github.com/ayusman/mudra/internal/verify"
)

// App is the application context shared by every command.
type App struct {
	config *config.Config
	// store is optional; without it runs are not recorded.
	store    *store.Store
	detector detector.Detector
	verifier *verify.Verifier
	mu       sync.Mutex
}

// New creates an App. s may be nil.
func New(cfg *config.Config, s *store.Store) *App {
	return &App{config: cfg, store: s, verifier: verify.New()}
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetVerifier replaces the verifier used to check the exported model.
func (a *App) SetVerifier(v *verify.Verifier) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verifier = v
}

// Detector returns the hand detector, creating the MediaPipe detector on
// first use. The detector is reused for every image of the process.
func (a *App) Detector() (detector.Detector, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector != nil {
		return a.detector, nil
	}
	mp, err := detector.NewMediaPipeDetector(detectorConfig(a.config))
	if err != nil {
		return nil, fmt.Errorf("create hand detector: %w", err)
	}
	log.Info("Using MediaPipe hand detection")
	a.detector = mp
	return mp, nil
}

// Close releases the detector.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector == nil {
		return nil
	}
	err := a.detector.Close()
	a.detector = nil
	return err
}

// Build harvests landmarks from the images under imagesDir and writes them
// to csvPath. progress may be nil.
func (a *App) Build(imagesDir, csvPath string, progress dataset.Progress) (*dataset.Dataset, error) {
	d, err := a.Detector()
	if err != nil {
		return nil, err
	}

	b := dataset.NewBuilder(extract.New(d))
	b.SetProgress(progress)

	ds, err := b.Build(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}
	if err := ds.WriteCSV(csvPath); err != nil {
		return nil, fmt.Errorf("write dataset: %w", err)
	}

	log.Infof("Dataset saved to %s with %d samples", csvPath, ds.Len())
	return ds, nil
}

// Predict classifies the hand in one image with the exported bundle.
func (a *App) Predict(imagePath string) (classifier.Prediction, error) {
	d, err := a.Detector()
	if err != nil {
		return classifier.Prediction{}, err
	}

	v, err := extract.New(d).Vector(imagePath)
	if err != nil {
		return classifier.Prediction{}, err
	}

	c, err := classifier.Load(a.config.Paths.ArtifactDir)
	if err != nil {
		return classifier.Prediction{}, fmt.Errorf("load artifacts: %w", err)
	}
	defer c.Close()

	return c.Classify(v)
}

func detectorConfig(c *config.Config) detector.Config {
	return detector.Config{
		StaticImageMode: c.Detector.StaticImageMode,
		MaxHands:        c.Detector.MaxHands,
		MinConfidence:   c.Detector.MinConfidence,
		ScriptPath:      c.Detector.ScriptPath,
		PythonPath:      c.Detector.PythonPath,
		IdleTimeout:     c.Detector.IdleTimeout,
	}
}

func featureOptions(c *config.Config) features.Options {
	return features.Options{
		TestSize:  c.Features.TestSize,
		Seed:      c.Features.Seed,
		ScalerFit: c.Features.ScalerFit,
	}
}

func trainerConfig(c *config.Config) trainer.Config {
	t := c.Training
	return trainer.Config{
		Epochs:                t.Epochs,
		BatchSize:             t.BatchSize,
		LearningRate:          t.LearningRate,
		Seed:                  t.Seed,
		EarlyStoppingPatience: t.EarlyStoppingPatience,
		LRFactor:              t.LRFactor,
		LRPatience:            t.LRPatience,
		LRMinDelta:            t.LRMinDelta,
		MinLR:                 t.MinLR,
		Validation:            t.Validation,
		HoldoutSize:           t.HoldoutSize,
	}
}

func exportOptions(c *config.Config) export.Options {
	return export.Options{
		Dir:                c.Paths.ArtifactDir,
		Float16:            c.Export.Float16,
		CalibrationSamples: c.Export.CalibrationSamples,
		Seed:               c.Export.Seed,
	}
}
