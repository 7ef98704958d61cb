package detector

import "math"

// Finger identifies a digit, thumb first.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	numFingers
)

// Base returns the landmark index of the finger's first joint (CMC for the
// thumb, MCP otherwise). The next three indices follow along the finger.
func (f Finger) Base() int {
	return 1 + 4*int(f)
}

// Tip returns the landmark index of the fingertip.
func (f Finger) Tip() int {
	return f.Base() + 3
}

// fingerGeometry holds the rest shape of one finger of a right hand seen
// palm forward: knuckle direction and distance from the wrist in palm
// lengths, and segment lengths in palm lengths.
type fingerGeometry struct {
	angle    float64 // degrees from vertical, positive toward +x
	knuckle  float64
	segments [3]float64
}

var restHand = [numFingers]fingerGeometry{
	Thumb:  {angle: 40, knuckle: 0.4, segments: [3]float64{0.45, 0.4, 0.35}},
	Index:  {angle: 15, knuckle: 1, segments: [3]float64{0.8, 0.55, 0.45}},
	Middle: {angle: 3, knuckle: 1, segments: [3]float64{0.85, 0.58, 0.47}},
	Ring:   {angle: -9, knuckle: 0.93, segments: [3]float64{0.76, 0.52, 0.43}},
	Pinky:  {angle: -20, knuckle: 0.86, segments: [3]float64{0.72, 0.5, 0.4}},
}

// Pose describes a synthetic right hand. Curl runs from 0 (straight) to 1
// (folded into the palm); each joint bends by a third of 180 degrees at
// full curl.
type Pose struct {
	Wrist Point3D
	// Palm is the wrist to middle knuckle distance in image units.
	Palm float64
	Curl [numFingers]float64
	// ThumbAngle overrides the thumb direction in degrees from vertical.
	ThumbAngle float64
}

// Landmarks renders the pose as a detected hand.
func (p Pose) Landmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = p.Wrist

	for f := Thumb; f < numFingers; f++ {
		g := restHand[f]
		knuckle := direction(g.angle)
		heading := knuckle
		if f == Thumb {
			heading = direction(p.ThumbAngle)
		}

		pt := Point3D{
			X: p.Wrist.X + p.Palm*g.knuckle*knuckle[0],
			Y: p.Wrist.Y + p.Palm*g.knuckle*knuckle[1],
			Z: p.Wrist.Z,
		}
		h.Points[f.Base()] = pt

		for k, seg := range g.segments {
			bend := p.Curl[f] * float64(k+1) * math.Pi / 3
			length := p.Palm * seg
			pt.X += length * math.Cos(bend) * heading[0]
			pt.Y += length * math.Cos(bend) * heading[1]
			pt.Z -= length * math.Sin(bend)
			h.Points[f.Base()+k+1] = pt
		}
	}
	return h
}

// direction is the image-space unit vector for an angle from vertical.
// Image y grows downward, so up is negative y.
func direction(deg float64) [2]float64 {
	rad := deg * math.Pi / 180
	return [2]float64{math.Sin(rad), -math.Cos(rad)}
}

// ThumbsUpPose has the thumb pointing up and the other fingers folded.
var ThumbsUpPose = Pose{
	Wrist:      Point3D{X: 0.5, Y: 0.8},
	Palm:       0.14,
	Curl:       [numFingers]float64{0, 1, 1, 1, 1},
	ThumbAngle: 8,
}

// OpenPalmPose has every finger straight and the thumb spread sideways.
var OpenPalmPose = Pose{
	Wrist:      Point3D{X: 0.5, Y: 0.8},
	Palm:       0.14,
	Curl:       [numFingers]float64{0.1, 0, 0, 0, 0},
	ThumbAngle: 55,
}

// FistPose folds every finger with the thumb across them.
var FistPose = Pose{
	Wrist:      Point3D{X: 0.5, Y: 0.8},
	Palm:       0.14,
	Curl:       [numFingers]float64{0.6, 1, 1, 1, 1},
	ThumbAngle: 35,
}

// ThumbsUpLandmarks returns a thumbs up hand.
func ThumbsUpLandmarks() HandLandmarks { return ThumbsUpPose.Landmarks() }

// OpenPalmLandmarks returns an open palm hand.
func OpenPalmLandmarks() HandLandmarks { return OpenPalmPose.Landmarks() }

// FistLandmarks returns a closed fist.
func FistLandmarks() HandLandmarks { return FistPose.Landmarks() }
