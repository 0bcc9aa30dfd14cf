package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// ErrConnection is returned when no HTTP response could be obtained at all
var ErrConnection = errors.New("connection failure")

// Page is the outcome of a single fetch
type Page struct {
	URL         string // URL as requested
	Location    string // final URL when redirects were followed, empty otherwise
	Status      int
	ContentType string
	Body        []byte
}

// Options configures the HTTP transport
type Options struct {
	Timeout   time.Duration // 0 means no timeout
	UserAgent string
	Transport http.RoundTripper
}

// Fetcher retrieves one URL at a time through a synchronous colly collector.
// It is not safe for concurrent use.
type Fetcher struct {
	collector *colly.Collector
	transport *recordingTransport
	current   *Page
}

// NewFetcher creates a new fetcher
func NewFetcher(opts Options) *Fetcher {
	collectorOpts := []colly.CollectorOption{
		colly.AllowURLRevisit(),        // dedup belongs to the frontier
		colly.ParseHTTPErrorResponse(), // 4xx/5xx are results, not failures
	}
	if opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(opts.UserAgent))
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	f := &Fetcher{
		collector: colly.NewCollector(collectorOpts...),
		transport: &recordingTransport{base: base},
	}

	f.collector.WithTransport(f.transport)
	f.collector.SetRequestTimeout(opts.Timeout)
	f.setupColly()
	return f
}

// setupColly registers the callbacks that capture the current response
func (f *Fetcher) setupColly() {
	f.collector.OnResponse(func(r *colly.Response) {
		f.current = responsePage(r)
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		// A status-bearing response is still a result
		if r != nil && r.StatusCode > 0 {
			f.current = responsePage(r)
			return
		}
		logrus.Debugf("Transport error: %v", err)
	})
}

// Fetch retrieves rawURL, following redirects. A response with any HTTP status
// is returned as a Page; failure to obtain a response wraps ErrConnection.
func (f *Fetcher) Fetch(rawURL string) (*Page, error) {
	f.current = nil
	f.transport.reset()

	err := f.collector.Visit(rawURL)

	page := f.current
	f.current = nil
	if page == nil {
		if err == nil {
			err = errors.New("no response received")
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, rawURL, err)
	}

	page.URL = rawURL
	if last, hops := f.transport.snapshot(); hops > 1 && last != rawURL {
		logrus.Debugf("Redirected from %q to %q", rawURL, last)
		page.Location = last
	}
	return page, nil
}

func responsePage(r *colly.Response) *Page {
	page := &Page{
		Status: r.StatusCode,
		Body:   r.Body,
	}
	if r.Headers != nil {
		page.ContentType = r.Headers.Get("Content-Type")
	}
	return page
}

// recordingTransport remembers the URL of the last request it carried, which
// after a redirect chain is the final location
type recordingTransport struct {
	base http.RoundTripper
	mu   sync.Mutex
	last string
	hops int
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.last = req.URL.String()
	t.hops++
	t.mu.Unlock()
	return t.base.RoundTrip(req)
}

func (t *recordingTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = ""
	t.hops = 0
}

func (t *recordingTransport) snapshot() (string, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hops
}
