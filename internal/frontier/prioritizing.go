package frontier

import (
	"math/rand/v2"
	"slices"

	"github.com/alvmarrod/spydey/internal/pattern"
	"github.com/sirupsen/logrus"
)

// PatternCount is the number of URLs seen for one path pattern
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// PatternPrioritizing tries to discover the different sections of a site
// quickly. Every accepted URL is classified with pattern.Classify; URLs whose
// pattern has not been seen before go to a priority stack, the rest to a
// low-priority pile that is popped in random order once the stack is empty.
type PatternPrioritizing struct {
	registry
	priority []string
	low      []string
	patterns map[string]int
	rng      *rand.Rand
}

// NewPatternPrioritizing creates an empty pattern-prioritizing frontier
func NewPatternPrioritizing(rng *rand.Rand) *PatternPrioritizing {
	return &PatternPrioritizing{
		registry: newRegistry(),
		priority: make([]string, 0),
		low:      make([]string, 0),
		patterns: make(map[string]int),
		rng:      rng,
	}
}

func (q *PatternPrioritizing) Append(url, referrer string) {
	if !q.admit(url, referrer) {
		return
	}

	p := pattern.Classify(url)
	if _, seen := q.patterns[p]; seen {
		q.low = append(q.low, url)
		q.patterns[p]++
		return
	}

	logrus.Debugf("New pattern: %q", p)
	q.priority = append(q.priority, url)
	q.patterns[p] = 1
}

// Extend appends the distinct URLs of the batch deepest first, so that the
// shallowest URL of each new pattern ends up on top of the priority stack.
func (q *PatternPrioritizing) Extend(urls []string, referrer string) {
	batch := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		batch = append(batch, url)
	}

	slices.SortStableFunc(batch, func(a, b string) int {
		return depth(b) - depth(a)
	})

	for _, url := range batch {
		q.Append(url, referrer)
	}
}

func (q *PatternPrioritizing) Pop() (string, error) {
	logrus.Debugf("Frontier sizes: known=%d priority=%d low=%d", q.Known(), len(q.priority), len(q.low))

	if n := len(q.priority); n > 0 {
		url := q.priority[n-1]
		q.priority = q.priority[:n-1]
		return url, nil
	}

	url, ok := popRandom(&q.low, q.rng)
	if !ok {
		return "", ErrEmptyQueue
	}
	return url, nil
}

func (q *PatternPrioritizing) Len() int {
	return len(q.priority) + len(q.low)
}

// IsPriority reports whether url is waiting in the priority stack
func (q *PatternPrioritizing) IsPriority(url string) bool {
	return slices.Contains(q.priority, url)
}

// PatternCounts returns the pattern counts ordered by ascending count,
// ties broken by pattern
func (q *PatternPrioritizing) PatternCounts() []PatternCount {
	counts := make([]PatternCount, 0, len(q.patterns))
	for p, n := range q.patterns {
		counts = append(counts, PatternCount{Pattern: p, Count: n})
	}

	slices.SortFunc(counts, func(a, b PatternCount) int {
		if a.Count != b.Count {
			return a.Count - b.Count
		}
		if a.Pattern < b.Pattern {
			return -1
		}
		if a.Pattern > b.Pattern {
			return 1
		}
		return 0
	})
	return counts
}
