package crawler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/alvmarrod/spydey/internal/config"
	"github.com/alvmarrod/spydey/internal/fetch"
	"github.com/alvmarrod/spydey/internal/frontier"
	"github.com/alvmarrod/spydey/internal/metrics"
	"github.com/alvmarrod/spydey/internal/parse"
	"github.com/alvmarrod/spydey/internal/report"
	"github.com/sirupsen/logrus"
)

// Termination reasons
const (
	ReasonQueueEmpty  = "queue_empty"
	ReasonMaxRequests = "max_requests"
	ReasonSignal      = "signal"
)

// Fetcher retrieves a single URL
type Fetcher interface {
	Fetch(url string) (*fetch.Page, error)
}

// Options controls the crawl loop
type Options struct {
	Recursive   bool
	MaxRequests int // 0 means unlimited
	Wait        time.Duration
	RandomWait  time.Duration
	Profile     bool
	ProfileSize int
}

// Crawler visits URLs one at a time, feeding discovered links back into its frontier
type Crawler struct {
	seedURL    string
	opts       Options
	frontier   frontier.Frontier
	filter     *LinkFilter
	fetcher    Fetcher
	reporter   report.Reporter
	slowest    *metrics.SlowestTable
	rng        *rand.Rand
	sleep      func(ctx context.Context, d time.Duration) error
	fetchCount int
	failures   int
}

// NewCrawler creates a crawler from a validated configuration
func NewCrawler(cfg *config.Config, fetcher Fetcher, reporter report.Reporter) (*Crawler, error) {
	strategy, err := cfg.Strategy()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	accept, err := config.CompilePatterns(cfg.Accept)
	if err != nil {
		return nil, fmt.Errorf("invalid accept pattern: %w", err)
	}
	reject, err := config.CompilePatterns(cfg.Reject)
	if err != nil {
		return nil, fmt.Errorf("invalid reject pattern: %w", err)
	}

	filter, err := NewLinkFilter(cfg.SeedURL, FilterOptions{
		SpanHosts:      cfg.SpanHosts,
		NoParent:       cfg.NoParent,
		PageRequisites: cfg.PageRequisites,
		Accept:         accept,
		Reject:         reject,
	})
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	queue, err := frontier.New(strategy, frontier.WithRand(rng))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Crawler{
		seedURL:  cfg.SeedURL,
		frontier: queue,
		filter:   filter,
		fetcher:  fetcher,
		reporter: reporter,
		rng:      rng,
		sleep:    sleepContext,
		opts: Options{
			Recursive:   cfg.Recursive,
			MaxRequests: cfg.MaxRequests,
			Wait:        cfg.WaitDuration(),
			RandomWait:  cfg.RandomWaitDuration(),
			Profile:     cfg.Profile,
			ProfileSize: cfg.ProfileSize,
		},
	}
	if c.opts.Profile {
		c.slowest = metrics.NewSlowestTable(c.opts.ProfileSize)
	}

	// Seed the frontier with the crawl root
	c.frontier.Append(cfg.SeedURL, "")
	return c, nil
}

// FetchCount returns the number of completed fetches
func (c *Crawler) FetchCount() int {
	return c.fetchCount
}

// Frontier exposes the crawl queue
func (c *Crawler) Frontier() frontier.Frontier {
	return c.frontier
}

// Run crawls until the frontier is empty, the request limit is reached, or
// ctx is cancelled. Per-URL failures never abort the crawl; an error is only
// returned for internal faults.
func (c *Crawler) Run(ctx context.Context) (report.Summary, error) {
	reason := ReasonQueueEmpty

	for c.frontier.Len() > 0 {
		if ctx.Err() != nil {
			reason = ReasonSignal
			break
		}

		url, err := c.frontier.Pop()
		if err != nil {
			return c.summary(reason), fmt.Errorf("frontier pop: %w", err)
		}

		page, elapsed, err := c.fetchOne(url)
		if err != nil {
			c.failures++
			c.reporter.Failure(url, err)
			continue
		}

		// Might have followed a redirect; links resolve against the final location
		if page.Location != "" && page.Location != url {
			logrus.Debugf("Redirected from %q to %q", url, page.Location)
			url = page.Location
		}

		c.handleResult(url, page, elapsed)

		if c.opts.MaxRequests > 0 && c.fetchCount >= c.opts.MaxRequests {
			logrus.Infof("Stopping after %d requests.", c.fetchCount)
			reason = ReasonMaxRequests
			break
		}

		if c.opts.Recursive {
			c.frontier.Extend(c.discover(url, page), url)

			if err := c.sleep(ctx, c.delay()); err != nil {
				reason = ReasonSignal
				break
			}
		}
	}

	summary := c.summary(reason)
	c.reporter.Finish(summary)
	return summary, nil
}

// fetchOne fetches a single URL, timing it when profiling
func (c *Crawler) fetchOne(url string) (*fetch.Page, time.Duration, error) {
	start := time.Now()
	page, err := c.fetcher.Fetch(url)
	if err != nil {
		return nil, 0, err
	}

	var elapsed time.Duration
	if c.opts.Profile {
		elapsed = time.Since(start)
		c.slowest.Insert(elapsed, url)
	} else {
		logrus.Debugf("Fetched %q", url)
	}

	c.fetchCount++
	return page, elapsed, nil
}

// handleResult classifies the status of a fetch and reports it
func (c *Crawler) handleResult(url string, page *fetch.Page, elapsed time.Duration) {
	referrer, ok := c.frontier.Referrer(url)
	if !ok {
		referrer, ok = c.frontier.Referrer(page.URL)
	}

	c.reporter.Visit(report.Visit{
		Seq:         c.fetchCount,
		URL:         url,
		Referrer:    referrer,
		HasReferrer: ok && referrer != "",
		Status:      page.Status,
		Severity:    ClassifyStatus(page.Status),
		Elapsed:     elapsed,
		Profiled:    c.opts.Profile,
	})
}

// discover extracts and filters the links of an HTML page
func (c *Crawler) discover(url string, page *fetch.Page) []string {
	logrus.Debugf("Getting more URLs from %s...", url)
	if !parse.IsHTML(page.ContentType) {
		return nil
	}

	links, err := parse.Links(page.Body, url)
	if err != nil {
		logrus.Warnf("Failed to extract links from %s: %v", url, err)
		return nil
	}

	return slices.Collect(c.filter.Filter(links))
}

// delay returns the pause before the next fetch
func (c *Crawler) delay() time.Duration {
	if c.opts.Wait > 0 {
		return c.opts.Wait
	}
	if c.opts.RandomWait > 0 {
		return time.Duration(c.rng.Float64() * float64(2*c.opts.RandomWait))
	}
	return 0
}

func (c *Crawler) summary(reason string) report.Summary {
	s := report.Summary{
		Fetched:  c.fetchCount,
		Failures: c.failures,
		Reason:   reason,
	}

	if pc, ok := c.frontier.(interface {
		PatternCounts() []frontier.PatternCount
	}); ok {
		s.Patterns = pc.PatternCounts()
	}
	if c.slowest != nil {
		s.Slowest = c.slowest.Entries()
	}
	return s
}

// ClassifyStatus maps an HTTP status to a report severity:
// 2xx/3xx are informational, 404 a warning, anything else an error.
func ClassifyStatus(status int) report.Severity {
	switch {
	case status < 400:
		return report.Info
	case status == 404:
		return report.Warning
	default:
		return report.Error
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
