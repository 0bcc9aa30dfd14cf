package storage

import (
	"fmt"

	"github.com/alvmarrod/spydey/internal/report"
	"github.com/sirupsen/logrus"
)

// RunRecorder writes the events of one crawl into the visit log
type RunRecorder struct {
	store   *Storage
	runID   string
	lastSeq int
}

// NewRunRecorder creates a run and returns a reporter bound to it
func NewRunRecorder(store *Storage, seedURL, strategy string) (*RunRecorder, error) {
	runID, err := store.CreateRun(seedURL, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to start run recorder: %w", err)
	}
	logrus.Infof("Recording visits as run %s", runID)

	return &RunRecorder{store: store, runID: runID}, nil
}

// RunID returns the ID of the recorded run
func (r *RunRecorder) RunID() string {
	return r.runID
}

func (r *RunRecorder) Visit(v report.Visit) {
	r.lastSeq = v.Seq
	err := r.store.InsertVisit(VisitRecord{
		RunID:     r.runID,
		Seq:       v.Seq,
		URL:       v.URL,
		Referrer:  v.Referrer,
		Status:    v.Status,
		Severity:  v.Severity.String(),
		ElapsedMs: v.Elapsed.Milliseconds(),
	})
	if err != nil {
		logrus.Warnf("Failed to record visit of %s: %v", v.URL, err)
	}
}

func (r *RunRecorder) Failure(url string, cause error) {
	err := r.store.InsertVisit(VisitRecord{
		RunID:    r.runID,
		Seq:      r.lastSeq,
		URL:      url,
		Severity: report.Error.String(),
		Error:    cause.Error(),
	})
	if err != nil {
		logrus.Warnf("Failed to record failure of %s: %v", url, err)
	}
}

func (r *RunRecorder) Finish(s report.Summary) {
	for _, p := range s.Patterns {
		if err := r.store.UpsertPatternCount(r.runID, p.Pattern, p.Count); err != nil {
			logrus.Warnf("Failed to record pattern %q: %v", p.Pattern, err)
		}
	}

	if err := r.store.FinishRun(r.runID, s.Fetched, s.Failures, s.Reason); err != nil {
		logrus.Warnf("Failed to finish run %s: %v", r.runID, err)
	}
}
