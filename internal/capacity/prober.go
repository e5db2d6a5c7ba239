// Package capacity reads host CPU and memory capacity for planning a load spike.
package capacity

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

// Prober reads host capacity once per run
type Prober interface {
	Probe(ctx context.Context) (domain.CapacitySnapshot, error)
}

// HostProber reads capacity from the running host
type HostProber struct {
	cpuCounts func(ctx context.Context, logical bool) (int, error)
	memory    func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// NewHostProber creates a prober backed by the host's platform APIs
func NewHostProber() *HostProber {
	return &HostProber{
		cpuCounts: cpu.CountsWithContext,
		memory:    mem.VirtualMemoryWithContext,
	}
}

// Probe returns the logical core count and total physical memory
func (p *HostProber) Probe(ctx context.Context) (domain.CapacitySnapshot, error) {
	cores, err := p.cpuCounts(ctx, true)
	if err != nil {
		return domain.CapacitySnapshot{}, fmt.Errorf("%w: reading core count: %v", domain.ErrCapacityUnavailable, err)
	}

	vm, err := p.memory(ctx)
	if err != nil {
		return domain.CapacitySnapshot{}, fmt.Errorf("%w: reading memory: %v", domain.ErrCapacityUnavailable, err)
	}

	snap := domain.CapacitySnapshot{
		LogicalCores:     cores,
		TotalMemoryBytes: vm.Total,
	}
	if err := snap.Validate(); err != nil {
		return domain.CapacitySnapshot{}, err
	}
	return snap, nil
}

// StaticProber returns a fixed snapshot or error. Used for tests and for
// pinning capacity from configuration.
type StaticProber struct {
	Snapshot domain.CapacitySnapshot
	Err      error
}

// Probe returns the configured snapshot
func (p StaticProber) Probe(ctx context.Context) (domain.CapacitySnapshot, error) {
	if p.Err != nil {
		return domain.CapacitySnapshot{}, p.Err
	}
	if err := p.Snapshot.Validate(); err != nil {
		return domain.CapacitySnapshot{}, err
	}
	return p.Snapshot, nil
}
