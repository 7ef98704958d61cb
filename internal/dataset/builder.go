package dataset

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Extractor turns an image file into a landmark vector. ok is false when
// the image yields no landmarks (a miss).
type Extractor interface {
	Extract(path string) (v Vector, ok bool)
}

// ClassProgress summarizes one processed class directory.
type ClassProgress struct {
	Label  string
	Images int
	Hits   int
	Misses int
}

// Progress receives notifications while a dataset is being built.
type Progress interface {
	// StartClass is called before the images of a class are processed.
	StartClass(label string, images int)
	// Image is called after each image, hit or miss.
	Image(path string, hit bool)
	// FinishClass is called once a class directory is complete.
	FinishClass(p ClassProgress)
}

// Builder harvests a dataset from a folder-per-class image tree.
type Builder struct {
	extractor Extractor
	progress  Progress
}

// NewBuilder creates a Builder that uses e for every image.
func NewBuilder(e Extractor) *Builder {
	return &Builder{extractor: e}
}

// SetProgress registers a progress receiver. A nil value disables it.
func (b *Builder) SetProgress(p Progress) {
	b.progress = p
}

// Build walks root, treating each subdirectory as a gesture class and every
// regular file inside it as a candidate image.
//
// A missing or empty root yields an empty dataset rather than an error.
// Classes are visited in directory listing order.
func (b *Builder) Build(root string) (*Dataset, error) {
	ds := New()

	entries, err := os.ReadDir(root)
	if err != nil {
		log.Warnf("Image directory %s not readable (%v), dataset is empty", root, err)
		return ds, nil
	}

	for _, entry := range entries {
		label := entry.Name()
		classDir := filepath.Join(root, label)
		if info, err := os.Stat(classDir); err != nil || !info.IsDir() {
			continue
		}

		files, err := listImages(classDir)
		if err != nil {
			log.Errorf("Failed to list %s: %v", classDir, err)
			continue
		}

		if b.progress != nil {
			b.progress.StartClass(label, len(files))
		}

		p := ClassProgress{Label: label, Images: len(files)}
		for _, path := range files {
			v, ok := b.extractor.Extract(path)
			if ok {
				ds.Append(Sample{Features: v, Label: label})
				p.Hits++
			} else {
				log.Debugf("No landmarks in %s, skipping", path)
				p.Misses++
			}

			if b.progress != nil {
				b.progress.Image(path, ok)
			}
		}

		log.Infof("Processed images for gesture: %s (%d of %d landmarked)", label, p.Hits, p.Images)
		if b.progress != nil {
			b.progress.FinishClass(p)
		}
	}

	if ds.Len() == 0 {
		log.Warnf("No landmarks extracted from %s", root)
	}

	return ds, nil
}

// listImages returns the regular files directly inside dir. Symlinks are
// followed; dangling links are skipped.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}

	return files, nil
}
