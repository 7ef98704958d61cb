// Package fixture writes gesture image trees for tests. Each class gets
// its own image height, which the mock detector keys its answer on.
package fixture

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ayusman/mudra/internal/detector"
)

// Class is one gesture class of a fixture tree.
type Class struct {
	Label  string
	Height int
	Hand   detector.HandLandmarks
}

// Classes returns the two standard classes, fist and palm.
func Classes() []Class {
	return []Class{
		{Label: "fist", Height: 40, Hand: detector.ThumbsUpLandmarks()},
		{Label: "palm", Height: 50, Hand: detector.OpenPalmLandmarks()},
	}
}

// WriteImage writes a 32 pixel wide PNG with the given height.
func WriteImage(path string, height int) error {
	img := image.NewRGBA(image.Rect(0, 0, 32, height))
	for y := 0; y < height; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(4 * x), G: uint8(2 * y), B: 90, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// WriteTree creates root/<label>/<label>_NN.png, n images per class.
func WriteTree(root string, classes []Class, n int) error {
	for _, c := range classes {
		dir := filepath.Join(root, c.Label)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := WriteImage(ImagePath(root, c, i), c.Height); err != nil {
				return err
			}
		}
	}
	return nil
}

// ImagePath returns the path of image i of class c under root.
func ImagePath(root string, c Class, i int) string {
	return filepath.Join(root, c.Label, fmt.Sprintf("%s_%02d.png", c.Label, i))
}

// Detector returns a mock that reports each class's hand for images of
// that class's height and no hands otherwise.
func Detector(classes []Class) *detector.MockDetector {
	mock := detector.NewMockDetector()
	for _, c := range classes {
		mock.SetHandsForHeight(c.Height, []detector.HandLandmarks{c.Hand})
	}
	return mock
}
