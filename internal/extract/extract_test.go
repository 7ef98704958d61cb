package extract

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeGIF(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, w, h), color.Palette{color.Black, color.White})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gif.Encode(f, img, nil))
}

func TestExtractor_Extract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hand.png")
	writePNG(t, path, 64, 48)

	t.Run("first hand is used", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetHands([]detector.HandLandmarks{
			detector.OpenPalmLandmarks(),
			detector.ThumbsUpLandmarks(),
		})

		v, ok := New(mock).Extract(path)
		require.True(t, ok)

		palm := detector.OpenPalmLandmarks()
		want := palm.Vector2D()
		assert.Equal(t, want[:], v[:])
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("no hands is a miss", func(t *testing.T) {
		mock := detector.NewMockDetector()

		_, ok := New(mock).Extract(path)
		assert.False(t, ok)

		_, err := New(mock).Vector(path)
		assert.ErrorIs(t, err, ErrNoHands)
	})

	t.Run("detector error is a miss", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetHands([]detector.HandLandmarks{detector.ThumbsUpLandmarks()})
		mock.SetError(errors.New("service crashed"))

		_, ok := New(mock).Extract(path)
		assert.False(t, ok)
	})

	t.Run("undecodable image is a miss", func(t *testing.T) {
		bad := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0644))

		mock := detector.NewMockDetector()
		mock.SetHands([]detector.HandLandmarks{detector.ThumbsUpLandmarks()})

		_, ok := New(mock).Extract(bad)
		assert.False(t, ok)
		assert.Equal(t, 0, mock.Calls(), "detector is not consulted")
	})

	t.Run("custom decoder", func(t *testing.T) {
		mock := detector.NewMockDetector()
		mock.SetHandsForHeight(7, []detector.HandLandmarks{detector.ThumbsUpLandmarks()})

		e := New(mock)
		e.SetDecoder(func(string) (gocv.Mat, error) {
			return gocv.NewMatWithSize(7, 5, gocv.MatTypeCV8UC3), nil
		})

		_, ok := e.Extract("ignored")
		assert.True(t, ok)
	})
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()

	t.Run("png via opencv", func(t *testing.T) {
		path := filepath.Join(dir, "a.png")
		writePNG(t, path, 32, 16)

		mat, err := Decode(path)
		require.NoError(t, err)
		defer mat.Close()

		assert.Equal(t, 16, mat.Rows())
		assert.Equal(t, 32, mat.Cols())
		assert.Equal(t, 3, mat.Channels())
	})

	t.Run("gif via fallback", func(t *testing.T) {
		path := filepath.Join(dir, "b.gif")
		writeGIF(t, path, 20, 10)

		mat, err := Decode(path)
		require.NoError(t, err)
		defer mat.Close()

		assert.Equal(t, 10, mat.Rows())
		assert.Equal(t, 20, mat.Cols())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Decode(filepath.Join(dir, "missing.png"))
		assert.Error(t, err)
	})
}
