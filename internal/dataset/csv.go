package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
)

// ErrSchema is returned when a CSV file does not carry the dataset columns.
var ErrSchema = errors.New("dataset schema mismatch")

// WriteCSV replaces the file at path with the dataset, header row first.
func (d *Dataset) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := gocsv.NewSafeCSVWriter(csv.NewWriter(f))
	if err := w.Write(Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, NumFeatures+1)
	for i, s := range d.Samples {
		for j, v := range s.Features {
			record[j] = formatValue(v)
		}
		record[NumFeatures] = s.Label
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return f.Close()
}

// ReadCSV loads a dataset written by WriteCSV or by any tool using the same
// header. Empty or unparsable feature cells become NaN and an empty label
// stays empty, so callers can drop incomplete rows. Labels are kept
// byte-for-byte. A file without the dataset columns is rejected even when it
// has no rows.
func ReadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	dec := gocsv.NewSimpleDecoderFromCSVReader(r)

	header, err := dec.GetCSVRow()
	if errors.Is(err, io.EOF) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	pos, err := columnPositions(header)
	if err != nil {
		return nil, fmt.Errorf("%w in %s", err, path)
	}

	ds := New()
	missing := 0
	for {
		record, err := dec.GetCSVRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		var s Sample
		for j := 0; j < NumFeatures; j++ {
			v, ok := parseValue(cell(record, pos[j]))
			if !ok {
				missing++
			}
			s.Features[j] = v
		}
		s.Label = cell(record, pos[NumFeatures])
		ds.Append(s)
	}

	if missing > 0 {
		log.Debugf("%s: %d feature cells missing or unparsable", path, missing)
	}

	return ds, nil
}

// columnPositions maps every dataset column to its index in header.
func columnPositions(header []string) ([]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}

	cols := Columns()
	pos := make([]int, len(cols))
	for i, col := range cols {
		j, ok := index[col]
		if !ok {
			return nil, fmt.Errorf("%w: column %q missing", ErrSchema, col)
		}
		pos[i] = j
	}
	return pos, nil
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseValue returns NaN and false for empty, NaN or malformed cells.
func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}
