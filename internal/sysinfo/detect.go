package sysinfo

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Detect inspects the host. Failures degrade to conservative defaults
// rather than erroring out: a validation run should not die because a
// container hides /proc.
func Detect(ctx context.Context) Hardware {
	hw := Hardware{
		CPUCores:          runtime.NumCPU(),
		AvailableMemoryMB: 512,
	}

	if counts, err := cpu.CountsWithContext(ctx, true); err == nil && counts > 0 {
		hw.CPUCores = counts
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Available > 0 {
		hw.AvailableMemoryMB = vm.Available / (1024 * 1024)
	}
	return hw
}
