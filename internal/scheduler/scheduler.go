// Package scheduler drives a batch of endpoints through a bounded pool
// of workers. It knows nothing about proxies beyond the result type: the
// per-endpoint work is injected as a Task.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/JasonVinion/Pengu/internal/model"
)

// Task produces the single result for one endpoint. Implementations must
// observe ctx at their blocking points.
type Task func(ctx context.Context, ep model.ProxyEndpoint) model.ProxyResult

// Run fans endpoints out to a fixed pool of workers and returns the
// result stream. Guarantees:
//
//   - dispatch order is input order (FIFO queue); completion order is not
//   - one result per dispatched endpoint, no drops, no duplicates
//   - a task exceeding perTask is abandoned and reported as a timeout,
//     independently of whatever deadline handling the task does itself
//   - cancelling ctx stops dispatch; in-flight tasks finish or time out,
//     and the channel closes after they drain. A partial run is a valid
//     terminal state.
//
// concurrency is clamped to at least 1; callers apply any hardware
// ceiling before calling Run.
func Run(ctx context.Context, endpoints []model.ProxyEndpoint, concurrency int, perTask time.Duration, task Task) <-chan model.ProxyResult {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(endpoints) && len(endpoints) > 0 {
		concurrency = len(endpoints)
	}

	jobs := make(chan model.ProxyEndpoint)
	out := make(chan model.ProxyResult, concurrency)

	go func() {
		defer close(jobs)
		for _, ep := range endpoints {
			select {
			case jobs <- ep:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ep := range jobs {
				out <- runOne(ctx, ep, perTask, task)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// runOne executes a task under the pool's own watchdog. The watchdog is a
// second line of defense: even if the task's internal deadline handling
// wedges, the worker moves on after perTask and the late result is
// discarded.
func runOne(ctx context.Context, ep model.ProxyEndpoint, perTask time.Duration, task Task) model.ProxyResult {
	tctx, cancel := context.WithTimeout(ctx, perTask)
	defer cancel()

	done := make(chan model.ProxyResult, 1)
	go func() {
		done <- task(tctx, ep)
	}()

	watchdog := time.NewTimer(perTask + perTask/4)
	defer watchdog.Stop()

	select {
	case r := <-done:
		return r
	case <-watchdog.C:
		return model.ProxyResult{
			Endpoint:  ep,
			Status:    model.StatusTimeout,
			Anonymity: model.AnonymityUnknown,
			Error:     "task exceeded scheduler deadline",
		}
	}
}
