package frontier

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

var (
	// ErrEmptyQueue is returned by Pop when no pending URL exists
	ErrEmptyQueue = errors.New("pop from empty frontier")

	// ErrUnknownStrategy is returned by ParseStrategy for unrecognized names
	ErrUnknownStrategy = errors.New("unknown traversal strategy")
)

// Frontier stores a queue of unique URLs and decides which one to visit next.
// A URL is accepted at most once for the lifetime of the frontier, even after
// it has been popped. Implementations are not safe for concurrent use.
type Frontier interface {
	// Append adds url unless it has been seen before, recording referrer as
	// its first referrer. Duplicates are silently ignored.
	Append(url, referrer string)
	// Extend adds a batch of URLs with the same dedup rule as Append.
	Extend(urls []string, referrer string)
	// Pop removes and returns the next URL, or ErrEmptyQueue.
	Pop() (string, error)
	// Len returns the number of pending URLs.
	Len() int
	// Known returns the number of distinct URLs ever accepted.
	Known() int
	// Referrer returns the first referrer recorded for url.
	Referrer(url string) (string, bool)
}

// Strategy selects a Frontier implementation
type Strategy string

const (
	BreadthFirst Strategy = "breadth-first"
	Random       Strategy = "random"
	DepthFirst   Strategy = "depth-first"
	Hybrid       Strategy = "hybrid"
	Pattern      Strategy = "pattern"
)

// Strategies lists every supported strategy name, sorted
func Strategies() []string {
	names := []string{
		string(BreadthFirst),
		string(Random),
		string(DepthFirst),
		string(Hybrid),
		string(Pattern),
	}
	sort.Strings(names)
	return names
}

// ParseStrategy validates a traversal strategy name
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case BreadthFirst, Random, DepthFirst, Hybrid, Pattern:
		return s, nil
	}
	return "", fmt.Errorf("%w %q (choices: %s)", ErrUnknownStrategy, name, strings.Join(Strategies(), ", "))
}

// Option configures a Frontier built by New
type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithRand sets the random source used by the random and pattern strategies
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// New creates the Frontier for the given strategy
func New(strategy Strategy, opts ...Option) (Frontier, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	switch strategy {
	case BreadthFirst:
		return NewFIFO(), nil
	case Random:
		return NewRandom(o.rng), nil
	case DepthFirst:
		return NewDepthFirst(), nil
	case Hybrid:
		return NewHybrid(), nil
	case Pattern:
		return NewPatternPrioritizing(o.rng), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, string(strategy))
}

// registry tracks every URL ever accepted and the first referrer of each
type registry struct {
	known     map[string]struct{}
	referrers map[string]string
}

func newRegistry() registry {
	return registry{
		known:     make(map[string]struct{}),
		referrers: make(map[string]string),
	}
}

// admit marks url as known and returns true if it was not known before
func (r *registry) admit(url, referrer string) bool {
	if _, ok := r.known[url]; ok {
		return false
	}
	r.known[url] = struct{}{}
	// First referrer only; never overwritten.
	if _, ok := r.referrers[url]; !ok {
		r.referrers[url] = referrer
	}
	return true
}

func (r *registry) Known() int {
	return len(r.known)
}

func (r *registry) Referrer(url string) (string, bool) {
	ref, ok := r.referrers[url]
	return ref, ok
}

// depth approximates how deep a URL sits by counting its slashes
func depth(url string) int {
	return strings.Count(url, "/")
}
