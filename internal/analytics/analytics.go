// Package analytics folds the result stream into run-level statistics.
package analytics

import (
	"sync"
	"time"

	"github.com/JasonVinion/Pengu/internal/model"
)

// ValidationRun summarizes one completed batch.
type ValidationRun struct {
	Total           int                     `json:"total"`
	Working         int                     `json:"working"`
	Failed          int                     `json:"failed"`
	TimedOut        int                     `json:"timed_out"`
	WorkingByScheme map[model.Scheme]int    `json:"working_by_scheme"`
	AnonymityCounts map[model.Anonymity]int `json:"anonymity_counts"`
	AvgLatencyMs    int64                   `json:"avg_latency_ms"`
	ElapsedMs       int64                   `json:"elapsed_ms"`
}

// Aggregator accumulates results as they complete. It is safe for
// concurrent Observe calls, though the usual pattern is a single drain
// loop feeding it.
type Aggregator struct {
	mu         sync.Mutex
	run        ValidationRun
	results    []model.ProxyResult
	latencySum int64
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		run: ValidationRun{
			WorkingByScheme: make(map[model.Scheme]int),
			AnonymityCounts: make(map[model.Anonymity]int),
		},
	}
}

// Observe records one result in completion order.
func (a *Aggregator) Observe(r model.ProxyResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.results = append(a.results, r)
	a.run.Total++
	switch r.Status {
	case model.StatusWorking:
		a.run.Working++
		a.run.WorkingByScheme[r.Endpoint.Scheme]++
		a.run.AnonymityCounts[r.Anonymity]++
		a.latencySum += r.LatencyMs
	case model.StatusTimeout:
		a.run.TimedOut++
	default:
		a.run.Failed++
	}
}

// Snapshot returns a copy of the current tallies, safe to read while
// results are still arriving.
func (a *Aggregator) Snapshot() ValidationRun {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyRunLocked()
}

// Finalize stamps the elapsed time and returns the summary together with
// every observed result in completion order.
func (a *Aggregator) Finalize(elapsed time.Duration) (ValidationRun, []model.ProxyResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.run.ElapsedMs = elapsed.Milliseconds()
	run := a.copyRunLocked()
	results := make([]model.ProxyResult, len(a.results))
	copy(results, a.results)
	return run, results
}

func (a *Aggregator) copyRunLocked() ValidationRun {
	run := a.run
	if a.run.Working > 0 {
		run.AvgLatencyMs = a.latencySum / int64(a.run.Working)
	}
	run.WorkingByScheme = make(map[model.Scheme]int, len(a.run.WorkingByScheme))
	for k, v := range a.run.WorkingByScheme {
		run.WorkingByScheme[k] = v
	}
	run.AnonymityCounts = make(map[model.Anonymity]int, len(a.run.AnonymityCounts))
	for k, v := range a.run.AnonymityCounts {
		run.AnonymityCounts[k] = v
	}
	return run
}
