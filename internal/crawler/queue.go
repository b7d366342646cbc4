package crawler

import (
	"sync"
)

// Task is a single page to crawl. Depth counts link hops from the seed.
type Task struct {
	URL   string
	Depth int
}

// Queue implements a thread-safe FIFO frontier
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []Task
	stopped bool
}

// NewQueue creates a new frontier queue
func NewQueue() *Queue {
	q := &Queue{
		items: make([]Task, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a task to the queue
// Returns false if the queue no longer accepts tasks
func (q *Queue) Push(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}

	q.items = append(q.items, task)

	// Signal waiting workers
	q.cond.Signal()

	return true
}

// Pop removes and returns the first task from the queue
// Blocks if queue is empty and not stopped
// Returns (task, true) if successful, (empty, false) if stopped and empty
func (q *Queue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.items) > 0 {
			task := q.items[0]
			q.items = q.items[1:]
			return task, true
		}

		if q.stopped {
			return Task{}, false
		}

		q.cond.Wait()
	}
}

// Size returns the current number of items in the queue
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop signals the queue to stop accepting new tasks
// Workers blocked on Pop() will drain remaining items, then receive false
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	q.cond.Broadcast()
}

// Drain stops the queue and discards every pending task
// Returns the number of tasks discarded
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.items)
	q.items = nil
	q.stopped = true
	q.cond.Broadcast()

	return dropped
}
