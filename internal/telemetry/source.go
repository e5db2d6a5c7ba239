package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Source reads raw host statistics
type Source interface {
	CPUPercent(ctx context.Context, interval time.Duration, perCPU bool) ([]float64, error)
	CPUCount(ctx context.Context) (int, error)
	CPUInfo(ctx context.Context) ([]cpu.InfoStat, error)
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error)
	DiskUsage(ctx context.Context, path string) (*disk.UsageStat, error)
	DiskIO(ctx context.Context) (map[string]disk.IOCountersStat, error)
	NetIO(ctx context.Context) ([]net.IOCountersStat, error)
	Interfaces(ctx context.Context) (net.InterfaceStatList, error)
	Host(ctx context.Context) (*host.InfoStat, error)
	// Processes reports per-process CPU usage measured over interval
	Processes(ctx context.Context, interval time.Duration) ([]ProcessInfo, error)
}

// HostSource reads statistics of the running host through gopsutil
type HostSource struct{}

func (HostSource) CPUPercent(ctx context.Context, interval time.Duration, perCPU bool) ([]float64, error) {
	return cpu.PercentWithContext(ctx, interval, perCPU)
}

func (HostSource) CPUCount(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}

func (HostSource) CPUInfo(ctx context.Context) ([]cpu.InfoStat, error) {
	return cpu.InfoWithContext(ctx)
}

func (HostSource) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (HostSource) SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error) {
	return mem.SwapMemoryWithContext(ctx)
}

func (HostSource) DiskUsage(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (HostSource) DiskIO(ctx context.Context) (map[string]disk.IOCountersStat, error) {
	return disk.IOCountersWithContext(ctx)
}

func (HostSource) NetIO(ctx context.Context) ([]net.IOCountersStat, error) {
	return net.IOCountersWithContext(ctx, false)
}

func (HostSource) Interfaces(ctx context.Context) (net.InterfaceStatList, error) {
	return net.InterfacesWithContext(ctx)
}

func (HostSource) Host(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

// Processes lists every process it may inspect; vanished or protected ones
// are skipped. CPU usage is the delta between two readings interval apart:
// gopsutil's single reading is the average since the process started, which
// would rank long-lived processes first.
func (HostSource) Processes(ctx context.Context, interval time.Duration) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	// The first zero-interval call only records the baseline CPU times
	sampled := procs[:0]
	for _, p := range procs {
		if _, err := p.PercentWithContext(ctx, 0); err == nil {
			sampled = append(sampled, p)
		}
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	infos := make([]ProcessInfo, 0, len(sampled))
	for _, p := range sampled {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		info := ProcessInfo{PID: p.Pid, Name: name}
		if pct, err := p.PercentWithContext(ctx, 0); err == nil {
			info.CPUPercent = pct
		}
		if pct, err := p.MemoryPercentWithContext(ctx); err == nil {
			info.MemoryPercent = pct
		}
		if status, err := p.StatusWithContext(ctx); err == nil {
			info.Status = strings.Join(status, ",")
		}
		infos = append(infos, info)
	}
	return infos, nil
}
