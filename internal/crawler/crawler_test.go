package crawler

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alvmarrod/spydey/internal/config"
	"github.com/alvmarrod/spydey/internal/fetch"
	"github.com/alvmarrod/spydey/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSite struct {
	pages map[string]*fetch.Page
	fail  map[string]bool
	calls []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		pages: make(map[string]*fetch.Page),
		fail:  make(map[string]bool),
	}
}

func (s *fakeSite) html(url string, links ...string) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	s.pages[url] = &fetch.Page{Status: 200, ContentType: "text/html; charset=utf-8", Body: []byte(b.String())}
}

func (s *fakeSite) Fetch(url string) (*fetch.Page, error) {
	s.calls = append(s.calls, url)
	if s.fail[url] {
		return nil, fmt.Errorf("%w: %s: connection refused", fetch.ErrConnection, url)
	}

	page, ok := s.pages[url]
	if !ok {
		return &fetch.Page{URL: url, Status: 404, ContentType: "text/html"}, nil
	}
	cp := *page
	cp.URL = url
	return &cp, nil
}

type recordingReporter struct {
	visits   []report.Visit
	failures []string
	summary  *report.Summary
}

func (r *recordingReporter) Visit(v report.Visit)           { r.visits = append(r.visits, v) }
func (r *recordingReporter) Failure(url string, err error) { r.failures = append(r.failures, url) }
func (r *recordingReporter) Finish(s report.Summary)        { r.summary = &s }

func (r *recordingReporter) urls() []string {
	out := make([]string, 0, len(r.visits))
	for _, v := range r.visits {
		out = append(out, v.URL)
	}
	return out
}

func newTestCrawler(t *testing.T, site *fakeSite, mutate func(*config.Config)) (*Crawler, *recordingReporter, *[]time.Duration) {
	t.Helper()

	cfg := config.Default()
	cfg.SeedURL = "http://x/"
	cfg.Recursive = true
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	rep := &recordingReporter{}
	c, err := NewCrawler(cfg, site, rep)
	require.NoError(t, err)

	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return c, rep, &sleeps
}

func TestRunBreadthFirst(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/a", "/b", "http://other/")
	site.html("http://x/a", "/a/1", "/")
	site.html("http://x/b", "/a")
	site.html("http://x/a/1")

	c, rep, _ := newTestCrawler(t, site, nil)
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://x/", "http://x/a", "http://x/b", "http://x/a/1"}, rep.urls())
	assert.Equal(t, ReasonQueueEmpty, summary.Reason)
	assert.Equal(t, 4, summary.Fetched)
	assert.Nil(t, summary.Patterns)
	assert.Nil(t, summary.Slowest)
	require.NotNil(t, rep.summary)

	// Sequence numbers and first referrers
	assert.Equal(t, 1, rep.visits[0].Seq)
	assert.False(t, rep.visits[0].HasReferrer)
	assert.Equal(t, 4, rep.visits[3].Seq)
	assert.Equal(t, "http://x/a", rep.visits[3].Referrer)
	assert.Equal(t, "http://x/", rep.visits[1].Referrer)
}

func TestRunNonRecursiveVisitsSeedOnly(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/a", "/b")

	c, rep, sleeps := newTestCrawler(t, site, func(cfg *config.Config) {
		cfg.Recursive = false
		cfg.Wait = 1
	})
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://x/"}, site.calls)
	assert.Len(t, rep.visits, 1)
	assert.Empty(t, *sleeps)
	assert.Equal(t, 1, c.Frontier().Known())
}

func TestRunStopsAtMaxRequests(t *testing.T) {
	site := newFakeSite()
	links := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		links = append(links, fmt.Sprintf("/p%d", i))
	}
	site.html("http://x/", links...)

	c, rep, _ := newTestCrawler(t, site, func(cfg *config.Config) {
		cfg.MaxRequests = 5
	})
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, site.calls, 5)
	assert.Len(t, rep.visits, 5)
	assert.Equal(t, 5, c.FetchCount())
	assert.Equal(t, ReasonMaxRequests, summary.Reason)
	assert.Equal(t, ReasonMaxRequests, rep.summary.Reason)
}

func TestRunConnectionFailuresAreSkipped(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/down", "/a", "/b", "/c", "/d", "/e")
	site.fail["http://x/down"] = true

	c, rep, _ := newTestCrawler(t, site, func(cfg *config.Config) {
		cfg.MaxRequests = 5
	})
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	// Five completed fetches, plus the abandoned attempt
	assert.Len(t, site.calls, 6)
	assert.Equal(t, 5, summary.Fetched)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, []string{"http://x/down"}, rep.failures)
	assert.NotContains(t, rep.urls(), "http://x/down")
}

func TestRunFailedURLNotRetried(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/down")
	site.html("http://x/other", "/down")
	site.fail["http://x/down"] = true

	c, _, _ := newTestCrawler(t, site, nil)
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://x/", "http://x/down"}, site.calls)
}

func TestRunRedirectChangesEffectiveURL(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "page")
	site.pages["http://x/"].Location = "http://x/home/"
	site.html("http://x/home/page")

	c, rep, _ := newTestCrawler(t, site, nil)
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://x/home/", "http://x/home/page"}, rep.urls())
	assert.Equal(t, "http://x/home/", rep.visits[1].Referrer)

	// The requested URL stays the known entry
	_, known := c.Frontier().Referrer("http://x/")
	assert.True(t, known)
	_, known = c.Frontier().Referrer("http://x/home/")
	assert.False(t, known)
}

func TestRunIgnoresLinksInNonHTML(t *testing.T) {
	site := newFakeSite()
	site.pages["http://x/"] = &fetch.Page{
		Status:      200,
		ContentType: "text/plain",
		Body:        []byte(`<a href="/a">a</a>`),
	}

	c, rep, _ := newTestCrawler(t, site, nil)
	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.visits, 1)
}

func TestRunSeverities(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/missing", "/broken", "/moved")
	site.pages["http://x/broken"] = &fetch.Page{Status: 503}
	site.pages["http://x/moved"] = &fetch.Page{Status: 304}

	c, rep, _ := newTestCrawler(t, site, nil)
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	got := make(map[string]report.Severity)
	for _, v := range rep.visits {
		got[v.URL] = v.Severity
	}
	assert.Equal(t, map[string]report.Severity{
		"http://x/":        report.Info,
		"http://x/missing": report.Warning,
		"http://x/broken":  report.Error,
		"http://x/moved":   report.Info,
	}, got)
}

func TestRunPatternSummary(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/blog/1", "/blog/2", "/about")

	c, _, _ := newTestCrawler(t, site, func(cfg *config.Config) {
		cfg.Traversal = "pattern"
	})
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, summary.Patterns)
	counts := make(map[string]int)
	for _, p := range summary.Patterns {
		counts[p.Pattern] = p.Count
	}
	assert.Equal(t, map[string]int{"": 1, "about": 1, `blog/\d+`: 2}, counts)
	assert.Equal(t, 4, summary.Fetched)
}

func TestRunProfile(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/a", "/b")

	c, rep, _ := newTestCrawler(t, site, func(cfg *config.Config) {
		cfg.Profile = true
		cfg.ProfileSize = 2
	})
	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, summary.Slowest, 2)
	for _, v := range rep.visits {
		assert.True(t, v.Profiled)
	}
}

func TestRunWait(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/a")

	c, _, sleeps := newTestCrawler(t, site, func(cfg *config.Config) {
		cfg.Wait = 0.25
		cfg.RandomWait = 10
	})
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, *sleeps)
}

func TestRunRandomWaitBounds(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/a", "/b", "/c")

	c, _, sleeps := newTestCrawler(t, site, func(cfg *config.Config) {
		cfg.RandomWait = 1
	})
	_, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, *sleeps, 4)
	for _, d := range *sleeps {
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestRunCancelled(t *testing.T) {
	site := newFakeSite()
	site.html("http://x/", "/a")

	c, rep, _ := newTestCrawler(t, site, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReasonSignal, summary.Reason)
	assert.Empty(t, site.calls)
	require.NotNil(t, rep.summary)
}

func TestNewCrawlerRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.SeedURL = "http://x/"
	cfg.Traversal = "sideways"

	_, err := NewCrawler(cfg, newFakeSite(), &recordingReporter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   report.Severity
	}{
		{200, report.Info},
		{204, report.Info},
		{301, report.Info},
		{399, report.Info},
		{400, report.Error},
		{403, report.Error},
		{404, report.Warning},
		{410, report.Error},
		{500, report.Error},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(tt.status), "status %d", tt.status)
	}
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
