package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/kikiluvv/cutpoint/pkg/util"
)

// ErrFrameRateMismatch is returned when a stats file was generated at a
// different frame rate than the stream being scanned.
var ErrFrameRateMismatch = errors.New("stats file frame rate mismatch")

// ErrCorruptStatsFile is returned when a stats file cannot be parsed.
var ErrCorruptStatsFile = errors.New("corrupt stats file")

const frameRateHeader = "Frame Rate:"

// SaveCSV writes all recorded metrics as CSV. The first row carries the frame
// rate so a later load can reject stats computed for a different stream
// timing; the second row is the column header.
func (r *Registry) SaveCSV(w io.Writer, frameRate float64) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{frameRateHeader, strconv.FormatFloat(frameRate, 'f', -1, 64)}); err != nil {
		return err
	}

	header := append([]string{"Frame Number", "Timecode"}, r.keys...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, num := range r.frameNumbers() {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatInt(num, 10))
		row = append(row, util.FormatSeconds(float64(num)/frameRate))
		for _, key := range r.keys {
			if v, ok := r.Get(num, key); ok {
				row = append(row, strconv.FormatFloat(v, 'f', 3, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// LoadCSV reads metrics previously written by SaveCSV into the registry,
// enabling the skip-if-already-computed scan path. The stored frame rate must
// match the stream's within a small tolerance.
func (r *Registry) LoadCSV(reader io.Reader, frameRate float64) error {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1

	rateRow, err := cr.Read()
	if err != nil {
		return fmt.Errorf("%w: missing frame rate row", ErrCorruptStatsFile)
	}
	if len(rateRow) < 2 || rateRow[0] != frameRateHeader {
		return fmt.Errorf("%w: unexpected first row", ErrCorruptStatsFile)
	}
	fileRate, err := strconv.ParseFloat(rateRow[1], 64)
	if err != nil || fileRate <= 0 {
		return fmt.Errorf("%w: bad frame rate %q", ErrCorruptStatsFile, rateRow[1])
	}
	if math.Abs(fileRate-frameRate) > 0.001 {
		return fmt.Errorf("%w: file %.3f, stream %.3f", ErrFrameRateMismatch, fileRate, frameRate)
	}

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("%w: missing header row", ErrCorruptStatsFile)
	}
	if len(header) < 3 || header[0] != "Frame Number" {
		return fmt.Errorf("%w: unexpected header row", ErrCorruptStatsFile)
	}
	keys := header[2:]
	r.RegisterKeys(keys...)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptStatsFile, err)
		}
		if len(row) != len(header) {
			return fmt.Errorf("%w: row has %d fields, want %d", ErrCorruptStatsFile, len(row), len(header))
		}
		num, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad frame number %q", ErrCorruptStatsFile, row[0])
		}
		for i, key := range keys {
			cell := row[2+i]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return fmt.Errorf("%w: bad value %q for %s", ErrCorruptStatsFile, cell, key)
			}
			r.Record(num, key, v)
		}
	}

	return nil
}
