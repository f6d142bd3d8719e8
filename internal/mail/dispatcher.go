package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultRetryBase   = 2 * time.Second
	defaultCallTimeout = 15 * time.Second
	deliveryRetries    = 3
	maxDeadLetters     = 100
)

// Dispatcher is the single consumer of the queue. Per job it attempts one
// send plus three retries backed off 2s, 4s, 8s; an exhausted job goes back
// to the tail until MaxAttempts cycles, then to the dead-letter list so one
// undeliverable job cannot starve the queue.
type Dispatcher struct {
	Queue  *Queue
	Sender Sender
	Log    *slog.Logger

	// RetryBase is the first backoff step; tests shrink it.
	RetryBase   time.Duration
	CallTimeout time.Duration
	MaxAttempts int

	mu          sync.Mutex
	deadLetters []Job
}

func NewDispatcher(q *Queue, s Sender, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Queue:       q,
		Sender:      s,
		Log:         log,
		RetryBase:   defaultRetryBase,
		CallTimeout: defaultCallTimeout,
		MaxAttempts: 3,
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	d.Log.Info("mail dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.Log.Info("mail dispatcher stopping")
			return
		case <-d.Queue.Wake():
		}

		for {
			if ctx.Err() != nil {
				d.Log.Info("mail dispatcher stopping")
				return
			}
			job, ok := d.Queue.Dequeue()
			if !ok {
				break
			}
			d.dispatch(ctx, job)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, job Job) {
	if err := d.deliver(ctx, job); err != nil {
		job.Attempts++
		if job.Attempts >= d.MaxAttempts {
			d.Log.Error("mail dead-lettered", "subject", job.Subject, "attempts", job.Attempts, "error", err)
			d.addDeadLetter(job)
			return
		}
		d.Log.Warn("mail delivery failed, requeueing", "subject", job.Subject, "attempts", job.Attempts, "error", err)
		d.Queue.Enqueue(job)
		return
	}
	d.Log.Info("mail sent", "subject", job.Subject)
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) error {
	backoff := retry.WithMaxRetries(deliveryRetries, retry.NewExponential(d.RetryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, d.CallTimeout)
		defer cancel()

		if err := d.Sender.Send(callCtx, job.Recipients, job.Subject, job.Body); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (d *Dispatcher) addDeadLetter(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.deadLetters) >= maxDeadLetters {
		d.deadLetters = d.deadLetters[1:]
	}
	d.deadLetters = append(d.deadLetters, job)
}

func (d *Dispatcher) DeadLetters() []Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Job, len(d.deadLetters))
	copy(out, d.deadLetters)
	return out
}
