// Package strategy sizes a run from the resources observed on the host.
// Detection happens once at startup; the chosen tier stays fixed for the
// whole run so behavior is deterministic and reproducible in tests by
// injecting a reading.
package strategy

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
)

// Resources is a point-in-time reading of the host.
type Resources struct {
	TotalMemoryBytes uint64
	CPUCount         int
}

// Tier bundles the batch size and file-level concurrency for a run.
type Tier struct {
	Name        string
	BatchSize   int
	Concurrency int
}

const gib = 1024 * 1024 * 1024

var (
	// Constrained keeps a single file in flight with small batches.
	Constrained = Tier{Name: "constrained", BatchSize: 20_000, Concurrency: 1}
	// Standard is the default for typical 8-32 GB hosts.
	Standard = Tier{Name: "standard", BatchSize: 50_000, Concurrency: 2}
	// HighThroughput assumes memory and cores to spare.
	HighThroughput = Tier{Name: "high-throughput", BatchSize: 100_000, Concurrency: 4}
)

// Detect reads the host's memory and CPU count.
func Detect() (Resources, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Resources{}, err
	}
	return Resources{
		TotalMemoryBytes: vm.Total,
		CPUCount:         runtime.NumCPU(),
	}, nil
}

// Select maps a resource reading onto a tier. Pure function: callers inject
// a fixed reading in tests.
func Select(res Resources) Tier {
	switch {
	case res.TotalMemoryBytes < 8*gib:
		return Constrained
	case res.TotalMemoryBytes < 32*gib || res.CPUCount < 8:
		return Standard
	default:
		return HighThroughput
	}
}
