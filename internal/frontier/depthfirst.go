package frontier

import "slices"

// DepthFirstOrder pops the most recently inserted URL (LIFO).
//
// A site is a cyclic graph rather than a tree, so to move away from the root
// quickly each batch is inserted shallowest first: the deepest links of a page
// end up on top of the stack.
type DepthFirstOrder struct {
	registry
	urls []string
}

// NewDepthFirst creates an empty depth-first frontier
func NewDepthFirst() *DepthFirstOrder {
	return &DepthFirstOrder{
		registry: newRegistry(),
		urls:     make([]string, 0),
	}
}

func (q *DepthFirstOrder) Append(url, referrer string) {
	if q.admit(url, referrer) {
		q.urls = append(q.urls, url)
	}
}

func (q *DepthFirstOrder) Extend(urls []string, referrer string) {
	for _, url := range shallowestFirst(urls) {
		q.Append(url, referrer)
	}
}

func (q *DepthFirstOrder) Pop() (string, error) {
	n := len(q.urls)
	if n == 0 {
		return "", ErrEmptyQueue
	}
	url := q.urls[n-1]
	q.urls = q.urls[:n-1]
	return url, nil
}

func (q *DepthFirstOrder) Len() int {
	return len(q.urls)
}

// shallowestFirst returns a copy of urls stably sorted by ascending depth
func shallowestFirst(urls []string) []string {
	sorted := slices.Clone(urls)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return depth(a) - depth(b)
	})
	return sorted
}
