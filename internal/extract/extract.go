// Package extract turns gesture images into landmark vectors.
package extract

import (
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/dataset"
	"github.com/ayusman/mudra/internal/detector"
)

// ErrNoHands is the miss reason when the detector finds nothing.
var ErrNoHands = errors.New("no hands detected")

// Decoder loads an image file as a BGR Mat, the channel order every
// Detector expects. The caller closes the Mat.
type Decoder func(path string) (gocv.Mat, error)

// Extractor wraps a hand detector and implements dataset.Extractor.
type Extractor struct {
	detector detector.Detector
	decode   Decoder
}

var _ dataset.Extractor = (*Extractor)(nil)

// New creates an Extractor around d. The detector is shared across calls
// and remains owned by the caller.
func New(d detector.Detector) *Extractor {
	return &Extractor{
		detector: d,
		decode:   Decode,
	}
}

// SetDecoder replaces the image decoder.
func (e *Extractor) SetDecoder(dec Decoder) {
	e.decode = dec
}

// Extract returns the landmark vector of the first detected hand. ok is
// false when the image can't be decoded, detection fails, or no hand is
// found.
func (e *Extractor) Extract(path string) (dataset.Vector, bool) {
	v, err := e.Vector(path)
	if err != nil {
		log.Debugf("Miss for %s: %v", path, err)
		return dataset.Vector{}, false
	}
	return v, true
}

// Vector is Extract with the reason for a miss reported as an error.
func (e *Extractor) Vector(path string) (dataset.Vector, error) {
	img, err := e.decode(path)
	if err != nil {
		return dataset.Vector{}, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	hands, err := e.detector.Detect(&img)
	if err != nil {
		return dataset.Vector{}, fmt.Errorf("detect hands: %w", err)
	}
	if len(hands) == 0 {
		return dataset.Vector{}, ErrNoHands
	}

	return dataset.Vector(hands[0].Vector2D()), nil
}

// Decode reads path with OpenCV. Formats OpenCV can't read are decoded
// with imaging, honoring EXIF orientation, and converted to a BGR Mat.
func Decode(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if !mat.Empty() {
		return mat, nil
	}
	mat.Close()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return gocv.NewMat(), err
	}

	mat, err = gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert %s: %w", path, err)
	}
	return mat, nil
}
