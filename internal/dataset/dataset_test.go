package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVector(seed float64) Vector {
	var v Vector
	for i := range v {
		v[i] = seed + float64(i)/1000.0
	}
	return v
}

func TestColumns(t *testing.T) {
	cols := Columns()

	require.Len(t, cols, 43)
	assert.Equal(t, "x0", cols[0])
	assert.Equal(t, "y0", cols[1])
	assert.Equal(t, "x20", cols[40])
	assert.Equal(t, "y20", cols[41])
	assert.Equal(t, "gesture", cols[42])
}

func TestDataset_Labels(t *testing.T) {
	ds := New()
	ds.Append(Sample{Label: "palm"})
	ds.Append(Sample{Label: "fist"})
	ds.Append(Sample{Label: "palm"})

	assert.Equal(t, []string{"fist", "palm"}, ds.Labels())
	assert.Equal(t, map[string]int{"fist": 1, "palm": 2}, ds.Counts())
}

func TestDataset_DropIncomplete(t *testing.T) {
	ds := New()
	ds.Append(Sample{Features: sampleVector(0.1), Label: "a"})

	withNaN := Sample{Features: sampleVector(0.2), Label: "a"}
	withNaN.Features[7] = math.NaN()
	ds.Append(withNaN)

	ds.Append(Sample{Features: sampleVector(0.3), Label: ""})
	ds.Append(Sample{Features: sampleVector(0.4), Label: "b"})

	clean, dropped := ds.DropIncomplete()

	assert.Equal(t, 2, dropped)
	assert.Equal(t, 2, clean.Len())
	assert.Equal(t, 4, ds.Len(), "source dataset is not modified")
}

func TestDataset_CSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hand_landmarks_dataset.csv")

	ds := New()
	ds.Append(Sample{Features: sampleVector(0.25), Label: "fist"})
	ds.Append(Sample{Features: sampleVector(0.5), Label: "palm"})

	require.NoError(t, ds.WriteCSV(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Columns(), ","), lines[0])

	loaded, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, ds.Len(), loaded.Len())
	for i := range ds.Samples {
		assert.Equal(t, ds.Samples[i].Label, loaded.Samples[i].Label)
		assert.InDeltaSlice(t, ds.Samples[i].Features[:], loaded.Samples[i].Features[:], 1e-12)
	}
}

func TestDataset_CSVKeepsLabelWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")

	ds := New()
	ds.Append(Sample{Features: sampleVector(0.1), Label: "A"})
	ds.Append(Sample{Features: sampleVector(0.2), Label: "A "})
	ds.Append(Sample{Features: sampleVector(0.3), Label: " thumbs up"})
	require.NoError(t, ds.WriteCSV(path))

	loaded, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, 3, loaded.Len())
	assert.Equal(t, []string{"A", "A ", " thumbs up"}, []string{
		loaded.Samples[0].Label, loaded.Samples[1].Label, loaded.Samples[2].Label,
	})
}

func TestReadCSV_MissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")

	row := make([]string, NumFeatures)
	for i := range row {
		row[i] = "0.5"
	}
	complete := strings.Join(row, ",") + ",fist"
	row[3] = ""
	blank := strings.Join(row, ",") + ",fist"
	row[3] = "NaN"
	nan := strings.Join(row, ",") + ",palm"

	content := strings.Join([]string{strings.Join(Columns(), ","), complete, blank, nan}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ds, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	clean, dropped := ds.DropIncomplete()
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, clean.Len())
}

func TestReadCSV_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("wrong schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,label\n1,2,x\n"), 0644))

		_, err := ReadCSV(path)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("wrong schema without rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b,c\n"), 0644))

		_, err := ReadCSV(path)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("header only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.csv")
		require.NoError(t, os.WriteFile(path, []byte(strings.Join(Columns(), ",")+"\n"), 0644))

		ds, err := ReadCSV(path)
		require.NoError(t, err)
		assert.Equal(t, 0, ds.Len())
	})
}
