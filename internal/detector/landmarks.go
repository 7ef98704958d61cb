// Package detector provides hand detection interfaces and types for gesture recognition.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// NumCoordinates is the number of values kept per landmark (x and y).
const NumCoordinates = 2

// Point3D represents a 3D point with x, y normalized to the image size
// and z relative to the wrist depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Vector2D flattens the landmarks into x0, y0, x1, y1, ... x20, y20.
// The z coordinate is dropped and no further normalization is applied.
func (h *HandLandmarks) Vector2D() [NumLandmarks * NumCoordinates]float64 {
	var v [NumLandmarks * NumCoordinates]float64
	if h == nil {
		return v
	}

	for i, p := range h.Points {
		v[i*NumCoordinates] = p.X
		v[i*NumCoordinates+1] = p.Y
	}

	return v
}
