package report

import (
	"time"

	"github.com/alvmarrod/spydey/internal/frontier"
)

// Severity classifies a visit outcome for reporting
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Visit describes one completed fetch
type Visit struct {
	Seq         int // fetch count after this fetch
	URL         string
	Referrer    string
	HasReferrer bool
	Status      int
	Severity    Severity
	Elapsed     time.Duration // zero unless profiling
	Profiled    bool
}

// Timing is an entry of the slowest-URL table
type Timing struct {
	Elapsed time.Duration `json:"elapsed"`
	URL     string        `json:"url"`
}

// Summary is emitted once when the crawl loop ends
type Summary struct {
	Fetched  int
	Failures int
	Reason   string
	Patterns []frontier.PatternCount // nil unless the pattern strategy is used
	Slowest  []Timing                // nil unless profiling
}

// Reporter receives crawl events. Implementations decide how to present or store them.
type Reporter interface {
	Visit(v Visit)
	Failure(url string, err error)
	Finish(s Summary)
}

type multi []Reporter

// Multi fans events out to every given reporter, in order
func Multi(reporters ...Reporter) Reporter {
	out := make(multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) Visit(v Visit) {
	for _, r := range m {
		r.Visit(v)
	}
}

func (m multi) Failure(url string, err error) {
	for _, r := range m {
		r.Failure(url, err)
	}
}

func (m multi) Finish(s Summary) {
	for _, r := range m {
		r.Finish(s)
	}
}
