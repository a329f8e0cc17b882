package sysinfo

import "testing"

func TestRecommendScalesWithCores(t *testing.T) {
	// Plenty of memory so the CPU term decides.
	prev := 0
	for cores := 1; cores <= 64; cores *= 2 {
		a := Recommend(Hardware{CPUCores: cores, AvailableMemoryMB: 64 * 1024})
		if a.Recommended < prev {
			t.Fatalf("%d cores: recommended %d dropped below %d", cores, a.Recommended, prev)
		}
		prev = a.Recommended
	}
}

func TestRecommendNeverExceedsCeiling(t *testing.T) {
	cases := []Hardware{
		{CPUCores: 1, AvailableMemoryMB: 128},
		{CPUCores: 8, AvailableMemoryMB: 2048},
		{CPUCores: 128, AvailableMemoryMB: 256 * 1024},
		{CPUCores: 0, AvailableMemoryMB: 0},
	}
	for _, hw := range cases {
		a := Recommend(hw)
		if a.Recommended < 1 {
			t.Fatalf("%+v: recommended %d, want >= 1", hw, a.Recommended)
		}
		if a.Recommended > a.Ceiling {
			t.Fatalf("%+v: recommended %d exceeds ceiling %d", hw, a.Recommended, a.Ceiling)
		}
		if a.Ceiling > absoluteCeiling {
			t.Fatalf("%+v: ceiling %d exceeds absolute ceiling", hw, a.Ceiling)
		}
	}
}

func TestRecommendMemoryBound(t *testing.T) {
	// 10 MB available: budget 6 MB = 6144 KB / 128 KB = 48 workers.
	a := Recommend(Hardware{CPUCores: 64, AvailableMemoryMB: 10})
	if a.Ceiling != 48 {
		t.Fatalf("ceiling = %d, want 48", a.Ceiling)
	}
	if a.Recommended != 48 {
		t.Fatalf("recommended = %d, want memory-bound 48", a.Recommended)
	}
}

func TestRecommendCPUBoundOnBigMemory(t *testing.T) {
	a := Recommend(Hardware{CPUCores: 4, AvailableMemoryMB: 32 * 1024})
	if a.Recommended != 4*workersPerCore {
		t.Fatalf("recommended = %d, want %d", a.Recommended, 4*workersPerCore)
	}
}
