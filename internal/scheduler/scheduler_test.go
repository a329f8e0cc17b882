package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JasonVinion/Pengu/internal/model"
)

func endpoints(n int) []model.ProxyEndpoint {
	eps := make([]model.ProxyEndpoint, n)
	for i := range eps {
		eps[i] = model.ProxyEndpoint{
			Scheme: model.SchemeHTTP,
			Host:   fmt.Sprintf("10.0.0.%d", i+1),
			Port:   8080,
		}
	}
	return eps
}

func instantTask(ctx context.Context, ep model.ProxyEndpoint) model.ProxyResult {
	return model.ProxyResult{Endpoint: ep, Status: model.StatusWorking}
}

func TestRunOneResultPerEndpoint(t *testing.T) {
	for _, conc := range []int{1, 4, 32, 100} {
		eps := endpoints(25)
		seen := make(map[string]int)
		for r := range Run(context.Background(), eps, conc, time.Second, instantTask) {
			seen[r.Endpoint.Addr()]++
		}
		if len(seen) != len(eps) {
			t.Fatalf("concurrency %d: %d distinct endpoints reported, want %d", conc, len(seen), len(eps))
		}
		for addr, n := range seen {
			if n != 1 {
				t.Fatalf("concurrency %d: endpoint %s reported %d times", conc, addr, n)
			}
		}
	}
}

func TestRunEmptyInput(t *testing.T) {
	out := Run(context.Background(), nil, 8, time.Second, instantTask)
	if _, ok := <-out; ok {
		t.Fatal("expected immediately closed channel for empty input")
	}
}

func TestRunPoolSizeIsBounded(t *testing.T) {
	const conc = 4
	var active, peak atomic.Int32
	task := func(ctx context.Context, ep model.ProxyEndpoint) model.ProxyResult {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return model.ProxyResult{Endpoint: ep, Status: model.StatusWorking}
	}

	for range Run(context.Background(), endpoints(40), conc, time.Second, task) {
	}
	if p := peak.Load(); p > conc {
		t.Fatalf("observed %d concurrent tasks, pool size is %d", p, conc)
	}
}

func TestRunWatchdogReportsStuckTask(t *testing.T) {
	stuck := func(ctx context.Context, ep model.ProxyEndpoint) model.ProxyResult {
		// Ignores its context entirely.
		time.Sleep(2 * time.Second)
		return model.ProxyResult{Endpoint: ep, Status: model.StatusWorking}
	}

	var results []model.ProxyResult
	for r := range Run(context.Background(), endpoints(2), 2, 50*time.Millisecond, stuck) {
		results = append(results, r)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Status != model.StatusTimeout {
			t.Fatalf("stuck task reported %v, want timeout", r.Status)
		}
	}
}

func TestRunCancellationStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	task := func(ctx context.Context, ep model.ProxyEndpoint) model.ProxyResult {
		started.Add(1)
		select {
		case <-ctx.Done():
			return model.ProxyResult{Endpoint: ep, Status: model.StatusFailed, Error: ctx.Err().Error()}
		case <-time.After(20 * time.Millisecond):
			return model.ProxyResult{Endpoint: ep, Status: model.StatusWorking}
		}
	}

	out := Run(ctx, endpoints(100), 2, time.Second, task)

	var results []model.ProxyResult
	r, ok := <-out
	if !ok {
		t.Fatal("channel closed before any result")
	}
	results = append(results, r)
	cancel()
	for r := range out {
		results = append(results, r)
	}

	if len(results) >= 100 {
		t.Fatal("cancellation did not stop dispatch")
	}
	if int(started.Load()) != len(results) {
		t.Fatalf("%d tasks started but %d results emitted", started.Load(), len(results))
	}
}
