package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
)

// LogReporter writes status lines through logrus and the final summaries as tables
type LogReporter struct {
	logger      logrus.FieldLogger
	out         io.Writer
	logReferrer bool
}

// NewLogReporter creates a reporter logging to logger and printing summaries to out
func NewLogReporter(logger logrus.FieldLogger, out io.Writer, logReferrer bool) *LogReporter {
	return &LogReporter{
		logger:      logger,
		out:         out,
		logReferrer: logReferrer,
	}
}

// FormatVisit renders the status line of a visit, e.g. "3. 404 http://x/missing"
func FormatVisit(v Visit, withReferrer bool) string {
	msg := fmt.Sprintf("%d. %d %s", v.Seq, v.Status, v.URL)
	if v.Profiled {
		msg = fmt.Sprintf("%s  (%0.3f secs)", msg, v.Elapsed.Seconds())
	}
	if withReferrer {
		ref := "None"
		if v.HasReferrer && v.Referrer != "" {
			ref = v.Referrer
		}
		msg = fmt.Sprintf("%s  (from %s)", msg, ref)
	}
	return msg
}

func (r *LogReporter) Visit(v Visit) {
	msg := FormatVisit(v, r.logReferrer)
	switch v.Severity {
	case Info:
		r.logger.Info(msg)
	case Warning:
		r.logger.Warn(msg)
	default:
		r.logger.Error(msg)
	}
}

func (r *LogReporter) Failure(url string, err error) {
	r.logger.WithError(err).Errorf("Failure connecting to %s", url)
}

func (r *LogReporter) Finish(s Summary) {
	if s.Patterns != nil {
		fmt.Fprintln(r.out, "Pattern count summary:")
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.AppendHeader(table.Row{"Pattern", "Count"})
		for _, p := range s.Patterns {
			t.AppendRow(table.Row{p.Pattern, p.Count})
		}
		t.Render()
	}

	if s.Slowest != nil {
		fmt.Fprintf(r.out, "Slowest %d URLs:\n", len(s.Slowest))
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.AppendHeader(table.Row{"Seconds", "URL"})
		for _, timing := range s.Slowest {
			t.AppendRow(table.Row{fmt.Sprintf("%0.3f", timing.Elapsed.Seconds()), timing.URL})
		}
		t.Render()
	}

	r.logger.Infof("Crawl finished (%s): %d fetched, %d connection failures", s.Reason, s.Fetched, s.Failures)
}
