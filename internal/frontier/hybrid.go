package frontier

import "github.com/sirupsen/logrus"

// HybridOrder alternates between depth-first (tail) and breadth-first (head)
// pops, starting with the tail. Batches are inserted shallowest first.
type HybridOrder struct {
	registry
	urls     []string
	fromHead bool
}

// NewHybrid creates an empty hybrid frontier
func NewHybrid() *HybridOrder {
	return &HybridOrder{
		registry: newRegistry(),
		urls:     make([]string, 0),
	}
}

func (q *HybridOrder) Append(url, referrer string) {
	if q.admit(url, referrer) {
		q.urls = append(q.urls, url)
	}
}

func (q *HybridOrder) Extend(urls []string, referrer string) {
	for _, url := range shallowestFirst(urls) {
		q.Append(url, referrer)
	}
}

func (q *HybridOrder) Pop() (string, error) {
	n := len(q.urls)
	if n == 0 {
		return "", ErrEmptyQueue
	}

	var url string
	if q.fromHead {
		url = q.urls[0]
		q.urls = q.urls[1:]
	} else {
		url = q.urls[n-1]
		q.urls = q.urls[:n-1]
	}

	q.fromHead = !q.fromHead
	if q.fromHead {
		logrus.Debug("next: left")
	} else {
		logrus.Debug("next: right")
	}
	return url, nil
}

func (q *HybridOrder) Len() int {
	return len(q.urls)
}
