package mail

import "sync"

type Job struct {
	Recipients []string
	Subject    string
	Body       string

	// Attempts counts completed dispatch cycles (each cycle is one send plus
	// its backed-off retries).
	Attempts int
}

// Queue is a FIFO of outbound mail jobs, safe for concurrent producers with
// the single dispatcher as consumer. Enqueue wakes the dispatcher through a
// buffered signal channel so the consumer never sleeps on a fixed interval.
type Queue struct {
	mu   sync.Mutex
	jobs []Job
	wake chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) Dequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return Job{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Wake returns the channel the dispatcher blocks on while the queue is empty.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}
