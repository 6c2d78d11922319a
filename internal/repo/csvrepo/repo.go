package csvrepo

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/milad/smartmeter/internal/domain"
	"github.com/milad/smartmeter/internal/repo"
)

var _ repo.ReadingRepository = (*Repo)(nil)

// Repo serves readings loaded once from a CSV file. It never writes.
type Repo struct {
	readings []domain.Reading // sorted ascending by Time
}

// NewFromFile loads path. A partially readable file yields a usable Repo
// together with an error describing the skipped rows.
func NewFromFile(path string) (*Repo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %q: %w", path, err)
	}
	defer f.Close()

	readings, parseErr := ParseReadingsCSV(f)
	if len(readings) == 0 && parseErr != nil {
		return nil, fmt.Errorf("parse csv %q: %w", path, parseErr)
	}
	r := New(readings)
	if parseErr != nil {
		return r, fmt.Errorf("parse csv %q: %w", path, parseErr)
	}
	return r, nil
}

func New(readings []domain.Reading) *Repo {
	cp := slices.Clone(readings)
	slices.SortStableFunc(cp, func(a, b domain.Reading) int { return a.Time.Compare(b.Time) })
	return &Repo{readings: cp}
}

func (r *Repo) List(ctx context.Context, startInclusive *time.Time, endExclusive *time.Time) ([]domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readings := r.readings
	if startInclusive != nil {
		start := *startInclusive
		i := sort.Search(len(readings), func(i int) bool { return !readings[i].Time.Before(start) })
		readings = readings[i:]
	}
	if endExclusive != nil {
		end := *endExclusive
		j := sort.Search(len(readings), func(i int) bool { return !readings[i].Time.Before(end) })
		readings = readings[:j]
	}
	return slices.Clone(readings), nil
}

// Len reports how many readings were loaded.
func (r *Repo) Len() int {
	return len(r.readings)
}
