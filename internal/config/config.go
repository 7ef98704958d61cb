// Package config loads mudra settings from defaults, an optional
// mudra.yaml, a .env file and MUDRA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// MUDRA_TRAINING_EPOCHS.
	EnvPrefix = "MUDRA"
	// FileName is the config file name without extension.
	FileName = "mudra"
)

// Config is the complete application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Paths    PathsConfig    `mapstructure:"paths" yaml:"paths"`
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Features FeaturesConfig `mapstructure:"features" yaml:"features"`
	Training TrainingConfig `mapstructure:"training" yaml:"training"`
	Export   ExportConfig   `mapstructure:"export" yaml:"export"`
	Plot     PlotConfig     `mapstructure:"plot" yaml:"plot"`
}

// LogConfig controls logrus.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	ImagesDir   string `mapstructure:"imagesDir" yaml:"imagesDir"`
	Dataset     string `mapstructure:"dataset" yaml:"dataset"`
	ArtifactDir string `mapstructure:"artifactDir" yaml:"artifactDir"`
	// DataDir holds the run ledger. Empty means ~/.mudra.
	DataDir string `mapstructure:"dataDir" yaml:"dataDir"`
}

// DetectorConfig configures the MediaPipe hand detector.
type DetectorConfig struct {
	ScriptPath      string        `mapstructure:"scriptPath" yaml:"scriptPath"`
	PythonPath      string        `mapstructure:"pythonPath" yaml:"pythonPath"`
	StaticImageMode bool          `mapstructure:"staticImageMode" yaml:"staticImageMode"`
	MaxHands        int           `mapstructure:"maxHands" yaml:"maxHands"`
	MinConfidence   float64       `mapstructure:"minConfidence" yaml:"minConfidence"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout"`
}

// FeaturesConfig controls the train/test preparation.
type FeaturesConfig struct {
	TestSize  float64 `mapstructure:"testSize" yaml:"testSize"`
	Seed      int64   `mapstructure:"seed" yaml:"seed"`
	ScalerFit string  `mapstructure:"scalerFit" yaml:"scalerFit"`
}

// TrainingConfig holds the classifier hyper-parameters.
type TrainingConfig struct {
	Epochs                int     `mapstructure:"epochs" yaml:"epochs"`
	BatchSize             int     `mapstructure:"batchSize" yaml:"batchSize"`
	LearningRate          float64 `mapstructure:"learningRate" yaml:"learningRate"`
	Seed                  int64   `mapstructure:"seed" yaml:"seed"`
	EarlyStoppingPatience int     `mapstructure:"earlyStoppingPatience" yaml:"earlyStoppingPatience"`
	LRFactor              float64 `mapstructure:"lrFactor" yaml:"lrFactor"`
	LRPatience            int     `mapstructure:"lrPatience" yaml:"lrPatience"`
	LRMinDelta            float64 `mapstructure:"lrMinDelta" yaml:"lrMinDelta"`
	MinLR                 float64 `mapstructure:"minLR" yaml:"minLR"`
	Validation            string  `mapstructure:"validation" yaml:"validation"`
	HoldoutSize           float64 `mapstructure:"holdoutSize" yaml:"holdoutSize"`
}

// ExportConfig controls model conversion.
type ExportConfig struct {
	Float16            bool  `mapstructure:"float16" yaml:"float16"`
	CalibrationSamples int   `mapstructure:"calibrationSamples" yaml:"calibrationSamples"`
	Seed               int64 `mapstructure:"seed" yaml:"seed"`
}

// PlotConfig controls the training history chart.
type PlotConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	File    string `mapstructure:"file" yaml:"file"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Paths: PathsConfig{
			ImagesDir:   "images",
			Dataset:     "hand_landmarks_dataset.csv",
			ArtifactDir: ".",
		},
		Detector: DetectorConfig{
			StaticImageMode: true,
			MaxHands:        1,
			MinConfidence:   0.5,
			IdleTimeout:     30 * time.Second,
		},
		Features: FeaturesConfig{
			TestSize:  0.2,
			Seed:      42,
			ScalerFit: "full",
		},
		Training: TrainingConfig{
			Epochs:                100,
			BatchSize:             32,
			LearningRate:          0.001,
			Seed:                  42,
			EarlyStoppingPatience: 15,
			LRFactor:              0.5,
			LRPatience:            8,
			LRMinDelta:            1e-4,
			MinLR:                 1e-6,
			Validation:            "test",
			HoldoutSize:           0.1,
		},
		Export: ExportConfig{
			Float16:            true,
			CalibrationSamples: 100,
			Seed:               42,
		},
		Plot: PlotConfig{
			Enabled: true,
			File:    "training_history.png",
		},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Paths.Dataset == "" {
		return errors.New("paths.dataset must not be empty")
	}
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("detector.maxHands must be >= 1, got %d", c.Detector.MaxHands)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.minConfidence must be in [0, 1], got %v", c.Detector.MinConfidence)
	}
	if c.Features.TestSize <= 0 || c.Features.TestSize >= 1 {
		return fmt.Errorf("features.testSize must be in (0, 1), got %v", c.Features.TestSize)
	}
	switch c.Features.ScalerFit {
	case "full", "train":
	default:
		return fmt.Errorf("features.scalerFit must be full or train, got %q", c.Features.ScalerFit)
	}
	if c.Training.Epochs < 1 || c.Training.BatchSize < 1 {
		return fmt.Errorf("training.epochs and training.batchSize must be positive")
	}
	if c.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learningRate must be positive, got %v", c.Training.LearningRate)
	}
	switch c.Training.Validation {
	case "test", "holdout":
	default:
		return fmt.Errorf("training.validation must be test or holdout, got %q", c.Training.Validation)
	}
	if c.Training.HoldoutSize <= 0 || c.Training.HoldoutSize >= 1 {
		return fmt.Errorf("training.holdoutSize must be in (0, 1), got %v", c.Training.HoldoutSize)
	}
	if c.Export.CalibrationSamples < 0 {
		return fmt.Errorf("export.calibrationSamples must not be negative")
	}
	return nil
}

// DataDir returns the ledger directory, defaulting to ~/.mudra.
func (c *Config) DataDir() (string, error) {
	if c.Paths.DataDir != "" {
		return c.Paths.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".mudra"), nil
}

// DatabasePath returns the run ledger location.
func (c *Config) DatabasePath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mudra.db"), nil
}

// Load builds the configuration. A .env file in the working directory is
// loaded into the environment first; mudra.yaml is searched in the working
// directory and ~/.mudra.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".mudra"))
	}

	return load(v)
}

// LoadFile builds the configuration from an explicit config file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	cfg := New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides resolve.
func setDefaults(v *viper.Viper, c *Config) {
	defaults := map[string]any{
		"log.level": c.Log.Level,

		"paths.imagesDir":   c.Paths.ImagesDir,
		"paths.dataset":     c.Paths.Dataset,
		"paths.artifactDir": c.Paths.ArtifactDir,
		"paths.dataDir":     c.Paths.DataDir,

		"detector.scriptPath":      c.Detector.ScriptPath,
		"detector.pythonPath":      c.Detector.PythonPath,
		"detector.staticImageMode": c.Detector.StaticImageMode,
		"detector.maxHands":        c.Detector.MaxHands,
		"detector.minConfidence":   c.Detector.MinConfidence,
		"detector.idleTimeout":     c.Detector.IdleTimeout,

		"features.testSize":  c.Features.TestSize,
		"features.seed":      c.Features.Seed,
		"features.scalerFit": c.Features.ScalerFit,

		"training.epochs":                c.Training.Epochs,
		"training.batchSize":             c.Training.BatchSize,
		"training.learningRate":          c.Training.LearningRate,
		"training.seed":                  c.Training.Seed,
		"training.earlyStoppingPatience": c.Training.EarlyStoppingPatience,
		"training.lrFactor":              c.Training.LRFactor,
		"training.lrPatience":            c.Training.LRPatience,
		"training.lrMinDelta":            c.Training.LRMinDelta,
		"training.minLR":                 c.Training.MinLR,
		"training.validation":            c.Training.Validation,
		"training.holdoutSize":           c.Training.HoldoutSize,

		"export.float16":            c.Export.Float16,
		"export.calibrationSamples": c.Export.CalibrationSamples,
		"export.seed":               c.Export.Seed,

		"plot.enabled": c.Plot.Enabled,
		"plot.file":    c.Plot.File,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}
