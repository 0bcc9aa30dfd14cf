package frontier

import (
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// RandomOrder pops a uniformly random pending URL.
//
// In practice this does not feel very random: the URL space of most sites is
// dominated by a few similar patterns, so most pops land on similar leaf pages.
type RandomOrder struct {
	registry
	urls []string
	rng  *rand.Rand
}

// NewRandom creates an empty random-order frontier
func NewRandom(rng *rand.Rand) *RandomOrder {
	return &RandomOrder{
		registry: newRegistry(),
		urls:     make([]string, 0),
		rng:      rng,
	}
}

func (q *RandomOrder) Append(url, referrer string) {
	if q.admit(url, referrer) {
		q.urls = append(q.urls, url)
	}
}

func (q *RandomOrder) Extend(urls []string, referrer string) {
	for _, url := range urls {
		q.Append(url, referrer)
	}
}

func (q *RandomOrder) Pop() (string, error) {
	url, ok := popRandom(&q.urls, q.rng)
	if !ok {
		return "", ErrEmptyQueue
	}
	return url, nil
}

func (q *RandomOrder) Len() int {
	return len(q.urls)
}

// popRandom removes a uniformly chosen element of *urls. O(n) in the tail length.
func popRandom(urls *[]string, rng *rand.Rand) (string, bool) {
	n := len(*urls)
	if n == 0 {
		return "", false
	}

	i := rng.IntN(n)
	logrus.Debugf("Randomly popping %d of %d", i, n)

	url := (*urls)[i]
	*urls = append((*urls)[:i], (*urls)[i+1:]...)
	return url, true
}
