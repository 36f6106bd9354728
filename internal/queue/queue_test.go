package queue_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trademaxxer/paper-engine/internal/model"
	"github.com/trademaxxer/paper-engine/internal/queue"
)

// recordingExecutor records execution order and tracks concurrency, with
// optional adversarial per-job latency.
type recordingExecutor struct {
	mu       sync.Mutex
	order    []int64
	inFlight int32
	maxSeen  int32
	latency  func(seq int64) time.Duration
	failOn   map[int64]bool
}

func (r *recordingExecutor) Execute(_ context.Context, job model.TradeJob) error {
	cur := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)
	for {
		max := atomic.LoadInt32(&r.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&r.maxSeen, max, cur) {
			break
		}
	}

	if r.latency != nil {
		time.Sleep(r.latency(job.Decision.Sequence))
	}

	r.mu.Lock()
	r.order = append(r.order, job.Decision.Sequence)
	r.mu.Unlock()

	if r.failOn[job.Decision.Sequence] {
		return errors.New("venue rejected trade")
	}
	return nil
}

func job(seq int64) model.TradeJob {
	return model.TradeJob{Decision: model.Decision{MarketID: "mkt", Action: model.ActionYes, Sequence: seq}}
}

func TestEnqueue_StrictArrivalOrder(t *testing.T) {
	// Adversarial latency: earlier jobs are slower than later ones, so any
	// ordering violation would surface immediately.
	exec := &recordingExecutor{
		latency: func(seq int64) time.Duration {
			return time.Duration(rand.Intn(5)+int(20-seq)) * time.Millisecond
		},
	}
	q := queue.New(context.Background(), exec)

	const n = 20
	for i := int64(1); i <= n; i++ {
		q.Enqueue(job(i))
	}
	q.Wait()

	if len(exec.order) != n {
		t.Fatalf("expected %d executions, got %d", n, len(exec.order))
	}
	for i, seq := range exec.order {
		if seq != int64(i+1) {
			t.Fatalf("out-of-order execution at %d: got seq %d, want %d", i, seq, i+1)
		}
	}
}

func TestEnqueue_SingleFlight(t *testing.T) {
	exec := &recordingExecutor{
		latency: func(int64) time.Duration { return 2 * time.Millisecond },
	}
	q := queue.New(context.Background(), exec)

	// Enqueue from many goroutines while the drain loop runs.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < 5; i++ {
				q.Enqueue(job(base*100 + i))
			}
		}(int64(g + 1))
	}
	wg.Wait()
	q.Wait()

	if exec.maxSeen != 1 {
		t.Errorf("expected at most one concurrent execution, saw %d", exec.maxSeen)
	}
	if len(exec.order) != 40 {
		t.Errorf("expected 40 executions, got %d", len(exec.order))
	}
}

func TestEnqueue_FailureDoesNotStallQueue(t *testing.T) {
	exec := &recordingExecutor{failOn: map[int64]bool{2: true}}
	q := queue.New(context.Background(), exec)

	for i := int64(1); i <= 4; i++ {
		q.Enqueue(job(i))
	}
	q.Wait()

	if len(exec.order) != 4 {
		t.Fatalf("failing job must not stall the loop: got %d executions", len(exec.order))
	}
	for i, seq := range exec.order {
		if seq != int64(i+1) {
			t.Fatalf("order broken after failure: got %v", exec.order)
		}
	}
}

func TestEnqueue_RestartsDrainAfterIdle(t *testing.T) {
	exec := &recordingExecutor{}
	q := queue.New(context.Background(), exec)

	q.Enqueue(job(1))
	q.Wait()

	q.Enqueue(job(2))
	q.Wait()

	if len(exec.order) != 2 {
		t.Fatalf("expected both batches executed, got %v", exec.order)
	}
	if q.Depth() != 0 {
		t.Errorf("expected empty queue, depth %d", q.Depth())
	}
}
