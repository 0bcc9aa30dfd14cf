package crawler

import (
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strings"

	"github.com/alvmarrod/spydey/internal/parse"
	"github.com/sirupsen/logrus"
)

// FilterOptions controls which discovered links are admissible
type FilterOptions struct {
	SpanHosts      bool
	NoParent       bool
	PageRequisites bool
	Accept         []*regexp.Regexp
	Reject         []*regexp.Regexp
}

// LinkFilter normalizes discovered links and drops those outside the crawl scope
type LinkFilter struct {
	baseURL string
	host    string
	opts    FilterOptions
}

// NewLinkFilter creates a filter scoped to the seed URL
func NewLinkFilter(seedURL string, opts FilterOptions) (*LinkFilter, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	return &LinkFilter{
		baseURL: seedURL,
		host:    u.Host,
		opts:    opts,
	}, nil
}

// Filter lazily yields the admissible links, fragment-stripped, each at most once.
// Links that fail to parse are dropped silently.
func (f *LinkFilter) Filter(links []parse.Link) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]bool)

		for _, link := range links {
			normalized, ok := f.admit(link)
			if !ok || seen[normalized] {
				continue
			}
			seen[normalized] = true

			if !yield(normalized) {
				return
			}
		}
	}
}

// admit runs the per-link pipeline and returns the normalized URL if it survives
func (f *LinkFilter) admit(link parse.Link) (string, bool) {
	u, ok := StripFragment(link.URL)
	if !ok {
		return "", false
	}
	normalized := u.String()

	// Domain scope
	if !f.opts.SpanHosts && u.Host != f.host {
		logrus.Debugf("Skipping %q from foreign domain", normalized)
		return "", false
	}

	// Accept/reject patterns
	if !f.accepted(normalized) {
		return "", false
	}

	switch {
	case link.Element == "a":
		// no-parent applies to pages only, not to page requisites
		if f.opts.NoParent && !strings.HasPrefix(normalized, f.baseURL) {
			logrus.Debugf("Skipping parent or sibling %q", normalized)
			return "", false
		}
		return normalized, true

	case link.Element == "form" && link.Attr == "action":
		// Never auto-submit forms
		return "", false

	case f.opts.PageRequisites:
		logrus.Debugf("Getting page requisite %q from (%s, %s)", normalized, link.Element, link.Attr)
		return normalized, true

	default:
		logrus.Debugf("Skipping %q from (%s, %s)", normalized, link.Element, link.Attr)
		return "", false
	}
}

// accepted applies accept patterns (if any) and then reject patterns,
// which take precedence
func (f *LinkFilter) accepted(link string) bool {
	ok := len(f.opts.Accept) == 0
	for _, re := range f.opts.Accept {
		if re.MatchString(link) {
			logrus.Debugf("Allowing %q, matches accept pattern %q", link, re.String())
			ok = true
			break
		}
	}

	for _, re := range f.opts.Reject {
		if re.MatchString(link) {
			logrus.Debugf("Skipping %q, matches reject pattern %q", link, re.String())
			return false
		}
	}
	return ok
}

// StripFragment parses rawURL with any '#'-suffix removed
func StripFragment(rawURL string) (*url.URL, bool) {
	rawURL, _, _ = strings.Cut(rawURL, "#")

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, true
}
