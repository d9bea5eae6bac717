package transport

import "sync"

// DefaultCapacity is the number of received bytes held for the poll loop.
const DefaultCapacity = 4096

// byteQueue hands bytes from a reader goroutine to the poll loop.
// push blocks when the queue is full; read never blocks.
type byteQueue struct {
	ch chan byte

	mu  sync.Mutex
	err error
}

func newByteQueue(capacity int) *byteQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &byteQueue{ch: make(chan byte, capacity)}
}

// push enqueues data. It returns false if done was closed first.
func (q *byteQueue) push(done <-chan struct{}, data []byte) bool {
	for _, b := range data {
		select {
		case q.ch <- b:
		case <-done:
			return false
		}
	}
	return true
}

// fail records the error that ended the reader. It is reported by read once
// every byte queued before it has been consumed.
func (q *byteQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

// clear forgets a recorded error, e.g. after a new connection was accepted.
func (q *byteQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = nil
}

func (q *byteQueue) read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		select {
		case b := <-q.ch:
			p[n] = b
			n++
		default:
			if n > 0 {
				return n, nil
			}
			q.mu.Lock()
			err := q.err
			q.mu.Unlock()
			if err != nil && len(q.ch) == 0 {
				return 0, err
			}
			return 0, nil
		}
	}
	return n, nil
}
