package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a BGR image and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(img *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// StaticImageMode treats every input as an unrelated still image.
	StaticImageMode bool

	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ScriptPath overrides the location of mediapipe_service.py.
	ScriptPath string

	// PythonPath overrides the Python interpreter used to run the service.
	PythonPath string

	// IdleTimeout shuts the service down after this long without requests.
	// Zero disables the idle shutdown.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		StaticImageMode: true,
		MaxHands:        1,
		MinConfidence:   0.5,
		IdleTimeout:     30 * time.Second,
	}
}
