package metrics

import (
	"slices"
	"time"

	"github.com/alvmarrod/spydey/internal/report"
)

// DefaultSlowestSize is the default capacity of a SlowestTable
const DefaultSlowestSize = 20

// SlowestTable keeps the N slowest fetches, sorted by descending elapsed time
type SlowestTable struct {
	size    int
	entries []report.Timing
}

// NewSlowestTable creates a table holding at most size entries
func NewSlowestTable(size int) *SlowestTable {
	if size <= 0 {
		size = DefaultSlowestSize
	}
	return &SlowestTable{
		size:    size,
		entries: make([]report.Timing, 0, size+1),
	}
}

// Insert records a fetch and truncates the table to its capacity
func (t *SlowestTable) Insert(elapsed time.Duration, url string) {
	t.entries = append(t.entries, report.Timing{Elapsed: elapsed, URL: url})
	slices.SortStableFunc(t.entries, func(a, b report.Timing) int {
		switch {
		case a.Elapsed > b.Elapsed:
			return -1
		case a.Elapsed < b.Elapsed:
			return 1
		}
		return 0
	})
	if len(t.entries) > t.size {
		t.entries = t.entries[:t.size]
	}
}

// Entries returns a copy of the table
func (t *SlowestTable) Entries() []report.Timing {
	return slices.Clone(t.entries)
}

// Len returns the number of entries held
func (t *SlowestTable) Len() int {
	return len(t.entries)
}
