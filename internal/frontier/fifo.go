package frontier

// FIFO pops URLs in insertion order, giving a breadth-first traversal
type FIFO struct {
	registry
	urls []string
}

// NewFIFO creates an empty breadth-first frontier
func NewFIFO() *FIFO {
	return &FIFO{
		registry: newRegistry(),
		urls:     make([]string, 0),
	}
}

func (q *FIFO) Append(url, referrer string) {
	if q.admit(url, referrer) {
		q.urls = append(q.urls, url)
	}
}

func (q *FIFO) Extend(urls []string, referrer string) {
	for _, url := range urls {
		q.Append(url, referrer)
	}
}

func (q *FIFO) Pop() (string, error) {
	if len(q.urls) == 0 {
		return "", ErrEmptyQueue
	}
	url := q.urls[0]
	q.urls = q.urls[1:]
	return url, nil
}

func (q *FIFO) Len() int {
	return len(q.urls)
}
