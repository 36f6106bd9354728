// Package queue implements the ordered trade queue: an unbounded FIFO with a
// single-flight drain loop. Enqueue never blocks, never drops, and never
// reorders; for jobs A enqueued before B, A's execution fully completes
// before B's begins. That total ordering is what keeps the ledger's
// incremental cost-basis updates correct under bursty decision arrival.
package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/trademaxxer/paper-engine/internal/metrics"
	"github.com/trademaxxer/paper-engine/internal/model"
)

// Executor runs one trade job to completion. A nil error covers both
// successful fills and handled no-ops (insufficient funds, zero cost).
type Executor interface {
	Execute(ctx context.Context, job model.TradeJob) error
}

// Queue is the ordered trade queue. The guard flag ensures at most one drain
// goroutine is active: an Enqueue during a running drain only appends — the
// running loop picks the new tail up when it gets there.
type Queue struct {
	exec Executor
	ctx  context.Context

	mu      sync.Mutex
	jobs    []model.TradeJob
	running bool
	wg      sync.WaitGroup
}

// New creates a queue. ctx bounds the lifetime of all executions started by
// the drain loop.
func New(ctx context.Context, exec Executor) *Queue {
	return &Queue{exec: exec, ctx: ctx}
}

// Enqueue appends job at the tail and starts the drain loop if none is
// running. Never blocks.
func (q *Queue) Enqueue(job model.TradeJob) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	metrics.QueueDepth.Set(float64(len(q.jobs)))
	if !q.running {
		q.running = true
		q.wg.Add(1)
		go q.drain()
	}
	q.mu.Unlock()
}

// drain pops and executes jobs head-first until the queue is empty. A
// failing job is logged and counted; it never stalls the loop.
func (q *Queue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		metrics.QueueDepth.Set(float64(len(q.jobs)))
		q.mu.Unlock()

		if err := q.exec.Execute(q.ctx, job); err != nil {
			metrics.TradeFailures.Inc()
			slog.Error("trade execution failed, continuing",
				"market", job.Decision.MarketID,
				"sequence", job.Decision.Sequence,
				"err", err,
			)
		}
	}
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Wait blocks until the current drain loop (if any) has finished.
// Must not race with concurrent Enqueue calls; intended for tests and
// shutdown, after producers have stopped.
func (q *Queue) Wait() {
	q.wg.Wait()
}
