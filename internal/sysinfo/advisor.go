// Package sysinfo sizes the worker pool from the machine it runs on.
// Detection talks to the OS; the advisor itself is pure arithmetic so the
// sizing policy stays testable without hardware.
package sysinfo

const (
	workersPerCore  = 8
	memPerWorkerKB  = 128
	absoluteCeiling = 1024

	// Fraction of available memory the pool may claim, in percent.
	memoryBudgetPct = 60
)

// Hardware is what Detect observed about the host.
type Hardware struct {
	CPUCores          int
	AvailableMemoryMB uint64
}

// Advice is the sizing recommendation for one run.
type Advice struct {
	// Recommended is the worker count to use when the operator asked
	// for automatic sizing.
	Recommended int
	// Ceiling is the hard upper bound applied even to explicit
	// operator-chosen counts.
	Ceiling int
}

// Recommend derives pool sizing from core count and available memory.
// The CPU term scales linearly with cores; the memory term assumes each
// in-flight validation holds a socket plus buffers worth roughly
// memPerWorkerKB. The smaller term wins, and nothing exceeds the
// absolute ceiling.
func Recommend(hw Hardware) Advice {
	cores := hw.CPUCores
	if cores < 1 {
		cores = 1
	}

	byCPU := cores * workersPerCore

	budgetKB := hw.AvailableMemoryMB * 1024 * memoryBudgetPct / 100
	byMem := int(budgetKB / memPerWorkerKB)
	if byMem < 1 {
		byMem = 1
	}

	ceiling := byMem
	if ceiling > absoluteCeiling {
		ceiling = absoluteCeiling
	}

	rec := byCPU
	if rec > ceiling {
		rec = ceiling
	}
	if rec < 1 {
		rec = 1
	}
	return Advice{Recommended: rec, Ceiling: ceiling}
}
