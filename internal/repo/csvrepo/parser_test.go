package csvrepo

import (
	"strings"
	"testing"
	"time"
)

func TestParseReadingsCSV_OK(t *testing.T) {
	t.Parallel()

	csv := strings.NewReader(strings.TrimSpace(`
time,kwh
2025-09-01 00:00:00,1.25
2025-09-01T01:00:00+02:00,0.75
`))

	readings, err := ParseReadingsCSV(csv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := len(readings), 2; got != want {
		t.Fatalf("len(readings)=%d want %d", got, want)
	}
	if readings[0].Time.Location() != time.UTC {
		t.Fatalf("time location=%v want UTC", readings[0].Time.Location())
	}
	if got, want := readings[1].Time, time.Date(2025, 8, 31, 23, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("time[1]=%v want %v", got, want)
	}
	if got, want := readings[0].KWh, 1.25; got != want {
		t.Fatalf("kwh[0]=%v want %v", got, want)
	}
}

func TestParseReadingsCSV_SkipsInvalidRows(t *testing.T) {
	t.Parallel()

	csv := strings.NewReader(strings.TrimSpace(`
timestamp,kwh
2025-09-01 00:00:00,1.25
2025-09-01 01:00:00,NaN
2025-09-01 02:00:00,-4
not-a-time,12.0
2025-09-01 03:00:00,0.5
`))

	readings, err := ParseReadingsCSV(csv)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if got, want := len(readings), 2; got != want {
		t.Fatalf("len(readings)=%d want %d", got, want)
	}
	if !strings.Contains(err.Error(), "row 4") {
		t.Fatalf("error should name the negative row, got %v", err)
	}
}

func TestParseReadingsCSV_RejectsHeader(t *testing.T) {
	t.Parallel()

	_, err := ParseReadingsCSV(strings.NewReader("time,meterusage\n2025-09-01 00:00:00,1\n"))
	if err == nil {
		t.Fatalf("expected header error")
	}
}
