package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func TestWriteTree(t *testing.T) {
	root := t.TempDir()
	classes := Classes()

	if err := WriteTree(root, classes, 3); err != nil {
		t.Fatalf("WriteTree() error = %v", err)
	}

	for _, c := range classes {
		entries, err := os.ReadDir(filepath.Join(root, c.Label))
		if err != nil {
			t.Fatalf("ReadDir(%s) error = %v", c.Label, err)
		}
		if len(entries) != 3 {
			t.Errorf("%s has %d images, want 3", c.Label, len(entries))
		}

		img := gocv.IMRead(ImagePath(root, c, 0), gocv.IMReadColor)
		if img.Rows() != c.Height {
			t.Errorf("%s image height = %d, want %d", c.Label, img.Rows(), c.Height)
		}
		img.Close()
	}
}

func TestDetector(t *testing.T) {
	classes := Classes()
	mock := Detector(classes)

	for _, c := range classes {
		img := gocv.NewMatWithSize(c.Height, 32, gocv.MatTypeCV8UC3)
		hands, err := mock.Detect(&img)
		img.Close()
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if len(hands) != 1 || hands[0] != c.Hand {
			t.Errorf("%s: unexpected hands %v", c.Label, hands)
		}
	}

	img := gocv.NewMatWithSize(7, 32, gocv.MatTypeCV8UC3)
	defer img.Close()
	hands, _ := mock.Detect(&img)
	if len(hands) != 0 {
		t.Errorf("unknown height detected %d hands", len(hands))
	}
}
