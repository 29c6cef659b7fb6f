// Package queue holds pending conversion jobs in process memory. The queue is
// deliberately not distributed and not persistent: a restart drops pending
// jobs. That limitation is part of the public contract of this service.
package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/entity"
)

// JobQueue is a thread-safe FIFO of pending jobs. Any number of producers may
// Submit concurrently; a single worker consumes via TakeNext. Capacity is
// bounded only by process memory, so Submit never rejects for fullness.
type JobQueue struct {
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []entity.Job
	closed bool
	// total counts every job ever submitted, for health reporting.
	total uint64
}

func NewJobQueue(logger *slog.Logger) *JobQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &JobQueue{logger: logger}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Submit appends the job to the tail and returns its 1-based queue position:
// the number of jobs ahead of and including it at this instant. The position
// is a snapshot, not a live rank. Fails only after Shutdown.
func (q *JobQueue) Submit(job entity.Job) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, common.ErrQueueClosed
	}
	q.jobs = append(q.jobs, job)
	q.total++
	position := len(q.jobs)
	q.cond.Signal()

	q.logger.Info("queue.submit",
		"job_id", job.ID,
		"source", job.Source.String(),
		"variant", string(job.Variant),
		"position", position,
	)
	return position, nil
}

// TakeNext removes and returns the head job, blocking cooperatively until a
// job is available. It returns ok=false when the queue has been shut down or
// ctx is cancelled; no job is ever returned twice or dropped.
func (q *JobQueue) TakeNext(ctx context.Context) (entity.Job, bool) {
	// Wake the cond wait when the context ends so shutdown is not stuck
	// behind an empty queue.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed || ctx.Err() != nil {
			return entity.Job{}, false
		}
		if len(q.jobs) > 0 {
			break
		}
		q.cond.Wait()
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.logger.Info("queue.take", "job_id", job.ID, "remaining", len(q.jobs))
	return job, true
}

// Size is a best-effort snapshot of the pending count, for health reporting.
func (q *JobQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// TotalSubmitted is the number of jobs accepted over the process lifetime.
func (q *JobQueue) TotalSubmitted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

// Shutdown rejects further submits and releases a blocked TakeNext. Pending
// jobs already in the queue are discarded; they were never persisted.
func (q *JobQueue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := len(q.jobs)
	q.cond.Broadcast()
	q.mu.Unlock()

	if dropped > 0 {
		q.logger.Warn("queue.shutdown.dropping_pending", "pending", dropped)
	} else {
		q.logger.Info("queue.shutdown")
	}
}
