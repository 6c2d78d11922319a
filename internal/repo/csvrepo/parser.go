package csvrepo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/milad/smartmeter/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// ParseReadingsCSV parses energy readings from r.
//
// Expected header: time,kwh (the first column may also be named timestamp).
// Times use layout "2006-01-02 15:04:05" interpreted as UTC, or RFC 3339.
// Rows with bad times or negative/non-finite kWh are skipped and reported
// as a joined error next to the readings that did parse.
func ParseReadingsCSV(r io.Reader) ([]domain.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !validHeader(header) {
		return nil, fmt.Errorf("unexpected header %q (want %q)", strings.Join(header, ","), "time,kwh")
	}

	readings := []domain.Reading{}
	var rowErrs []error
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: read: %w", row, err))
			continue
		}
		reading, err := parseRow(rec)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: %w", row, err))
			continue
		}
		readings = append(readings, reading)
	}
	return readings, errors.Join(rowErrs...)
}

func validHeader(h []string) bool {
	if len(h) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(h[0]))
	second := strings.ToLower(strings.TrimSpace(h[1]))
	return (first == "time" || first == "timestamp") && second == "kwh"
}

func parseRow(rec []string) (domain.Reading, error) {
	if len(rec) < 2 {
		return domain.Reading{}, fmt.Errorf("expected 2 columns, got %d", len(rec))
	}
	ts, err := parseTime(strings.TrimSpace(rec[0]))
	if err != nil {
		return domain.Reading{}, fmt.Errorf("parse time %q: %w", rec[0], err)
	}
	kwh, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("parse kwh %q: %w", rec[1], err)
	}
	if math.IsNaN(kwh) || math.IsInf(kwh, 0) || kwh < 0 {
		return domain.Reading{}, fmt.Errorf("invalid kwh %v", kwh)
	}
	return domain.Reading{Time: ts, KWh: kwh}, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, v, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
