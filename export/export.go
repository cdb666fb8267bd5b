// Package export writes the junction_data table to a CSV file.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"junctionflow/models"
)

// IOError reports a failure creating or writing the export file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("export to %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Reader is the part of the store an export needs.
type Reader interface {
	ReadAll(ctx context.Context) ([]models.JunctionRecord, error)
}

// Copier is implemented by stores that can stream the table as CSV themselves.
type Copier interface {
	CanCopy() bool
	CopyCSV(ctx context.Context, w io.Writer) error
}

// ToFile exports every stored row to path, replacing any existing file. The
// data is written to a temporary file next to path and renamed into place, so
// a failed export leaves the previous file untouched.
func ToFile(ctx context.Context, src Reader, path string) (err error) {
	var records []models.JunctionRecord
	copier, canCopy := src.(Copier)
	canCopy = canCopy && copier.CanCopy()
	if !canCopy {
		// Read before touching the filesystem so a store failure creates nothing.
		if records, err = src.ReadAll(ctx); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if canCopy {
		if err = copier.CopyCSV(ctx, tmp); err != nil {
			return err
		}
	} else if err = Write(tmp, records); err != nil {
		return &IOError{Path: path, Err: err}
	}

	if err = tmp.Close(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

// Write encodes records as CSV with a header row of column names.
func Write(w io.Writer, records []models.JunctionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(r models.JunctionRecord) []string {
	return []string{
		r.JunctionName,
		r.PrimaryDirection,
		strconv.Itoa(r.PrimarySpeedLimit),
		formatFloat(r.PrimaryAvgSpeed),
		r.SecondaryDirection,
		strconv.Itoa(r.SecondarySpeedLimit),
		formatFloat(r.SecondaryAvgSpeed),
		r.RecordTime,
		r.RecordDate,
		r.DayOfWeek,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Read decodes a CSV produced by Write or by the store's COPY export.
func Read(r io.Reader) ([]models.JunctionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(models.Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, err
	}
	for i, name := range models.Columns {
		if header[i] != name {
			return nil, fmt.Errorf("column %d is %q, want %q", i, header[i], name)
		}
	}

	var out []models.JunctionRecord
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
}

func parseRow(f []string) (models.JunctionRecord, error) {
	var (
		rec models.JunctionRecord
		err error
	)
	rec.JunctionName = f[0]
	rec.PrimaryDirection = f[1]
	if rec.PrimarySpeedLimit, err = strconv.Atoi(f[2]); err != nil {
		return rec, err
	}
	if rec.PrimaryAvgSpeed, err = strconv.ParseFloat(f[3], 64); err != nil {
		return rec, err
	}
	rec.SecondaryDirection = f[4]
	if rec.SecondarySpeedLimit, err = strconv.Atoi(f[5]); err != nil {
		return rec, err
	}
	if rec.SecondaryAvgSpeed, err = strconv.ParseFloat(f[6], 64); err != nil {
		return rec, err
	}
	rec.RecordTime = f[7]
	rec.RecordDate = f[8]
	rec.DayOfWeek = f[9]
	return rec, nil
}
