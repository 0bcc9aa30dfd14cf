package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/spydey/internal/report"
	"github.com/alvmarrod/spydey/internal/storage"
)

// Tracker holds and manages crawl metrics. It receives events as a report.Reporter.
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	timedFetches     int
}

// NewTracker creates a new metrics tracker
func NewTracker(seedURL, strategy string) *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
			SeedURL:   seedURL,
			Strategy:  strategy,
		},
	}
}

// Visit counts a completed fetch by severity
func (t *Tracker) Visit(v report.Visit) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.PagesFetched++
	switch v.Severity {
	case report.Info:
		t.data.InfoCount++
	case report.Warning:
		t.data.WarningCount++
	default:
		t.data.ErrorCount++
	}

	if v.Profiled {
		t.totalFetchTimeMs += v.Elapsed.Milliseconds()
		t.timedFetches++
	}
}

// Failure counts a fetch that never got a response
func (t *Tracker) Failure(string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ConnectionFailures++
}

// Finish stores the end-of-crawl summary
func (t *Tracker) Finish(s report.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.TerminationReason = s.Reason

	t.data.Slowest = nil
	for _, timing := range s.Slowest {
		t.data.Slowest = append(t.data.Slowest, storage.SlowURL{
			URL:       timing.URL,
			ElapsedMs: timing.Elapsed.Milliseconds(),
		})
	}

	t.data.Patterns = nil
	if s.Patterns != nil {
		t.data.Patterns = make(map[string]int, len(s.Patterns))
		for _, p := range s.Patterns {
			t.data.Patterns[p.Pattern] = p.Count
		}
	}
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.timedFetches > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.timedFetches)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path string) error {
	snapshot := t.GetSnapshot()
	if snapshot.EndTime.IsZero() {
		snapshot.EndTime = time.Now()
	}

	// Marshal to JSON
	jsonData, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Pages: %d fetched (%d ok, %d warnings, %d errors), %d connection failures",
		t.data.PagesFetched,
		t.data.InfoCount,
		t.data.WarningCount,
		t.data.ErrorCount,
		t.data.ConnectionFailures,
	)
}
