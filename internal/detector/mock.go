package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands  []HandLandmarks
	err    error
	calls  int
	byRows map[int][]HandLandmarks
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// SetHandsForHeight returns hands only for images with the given row count.
// Tests use image height as a cheap way to tell fixture images apart.
func (m *MockDetector) SetHandsForHeight(rows int, hands []HandLandmarks) {
	if m.byRows == nil {
		m.byRows = make(map[int][]HandLandmarks)
	}
	m.byRows[rows] = hands
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(img *gocv.Mat) ([]HandLandmarks, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if img != nil && m.byRows != nil {
		if hands, ok := m.byRows[img.Rows()]; ok {
			return hands, nil
		}
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
