// Package telemetry samples host-level CPU, memory, disk, network and process
// statistics for the dashboard. It knows nothing about load spikes.
package telemetry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultSampleInterval is the window CPU utilisation is measured over
	DefaultSampleInterval = time.Second
	TopProcesses          = 10
)

// Collector gathers SystemInfo snapshots
type Collector struct {
	source   Source
	interval time.Duration
	diskPath string
}

// NewCollector creates a collector reading the running host
func NewCollector() *Collector {
	return NewCollectorWithSource(HostSource{}, DefaultSampleInterval)
}

// NewCollectorWithSource creates a collector over any statistics source
func NewCollectorWithSource(source Source, interval time.Duration) *Collector {
	return &Collector{source: source, interval: interval, diskPath: "/"}
}

// Collect samples every section concurrently. A failure in any required
// section fails the snapshot; missing disk IO counters read as zero.
func (c *Collector) Collect(ctx context.Context) (*SystemInfo, error) {
	info := &SystemInfo{Timestamp: time.Now()}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pct, err := c.source.CPUPercent(ctx, c.interval, false)
		if err != nil {
			return fmt.Errorf("cpu percent: %w", err)
		}
		if len(pct) > 0 {
			mu.Lock()
			info.CPU.Percent = pct[0]
			mu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		perCore, err := c.source.CPUPercent(ctx, c.interval, true)
		if err != nil {
			return fmt.Errorf("cpu per core: %w", err)
		}
		mu.Lock()
		info.CPU.PerCore = perCore
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		count, err := c.source.CPUCount(ctx)
		if err != nil {
			return fmt.Errorf("cpu count: %w", err)
		}
		var freq *float64
		if stats, err := c.source.CPUInfo(ctx); err == nil && len(stats) > 0 && stats[0].Mhz > 0 {
			mhz := stats[0].Mhz
			freq = &mhz
		}
		mu.Lock()
		info.CPU.Count = count
		info.CPU.Frequency.Current = freq
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		vm, err := c.source.VirtualMemory(ctx)
		if err != nil {
			return fmt.Errorf("memory: %w", err)
		}
		swap, err := c.source.SwapMemory(ctx)
		if err != nil {
			return fmt.Errorf("swap: %w", err)
		}
		mu.Lock()
		info.Memory = MemoryInfo{
			Total:     vm.Total,
			Available: vm.Available,
			Used:      vm.Used,
			Percent:   vm.UsedPercent,
			Free:      vm.Free,
		}
		info.Swap = SwapInfo{
			Total:   swap.Total,
			Used:    swap.Used,
			Free:    swap.Free,
			Percent: swap.UsedPercent,
		}
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		usage, err := c.source.DiskUsage(ctx, c.diskPath)
		if err != nil {
			return fmt.Errorf("disk usage: %w", err)
		}
		d := DiskInfo{
			Total:   usage.Total,
			Used:    usage.Used,
			Free:    usage.Free,
			Percent: usage.UsedPercent,
		}
		counters, err := c.source.DiskIO(ctx)
		if err != nil {
			log.WithError(err).Debug("disk io counters unavailable")
		}
		for _, io := range counters {
			d.ReadBytes += io.ReadBytes
			d.WriteBytes += io.WriteBytes
		}
		mu.Lock()
		info.Disk = d
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		n, err := c.network(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		info.Network = n
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		h, err := c.source.Host(ctx)
		if err != nil {
			return fmt.Errorf("host: %w", err)
		}
		mu.Lock()
		info.System = HostInfo{
			Platform:        h.OS,
			PlatformRelease: h.KernelVersion,
			PlatformVersion: strings.TrimSpace(h.Platform + " " + h.PlatformVersion),
			Architecture:    h.KernelArch,
			Hostname:        h.Hostname,
			BootTime:        time.Unix(int64(h.BootTime), 0),
			UptimeSeconds:   h.Uptime,
			UptimeDays:      h.Uptime / 86400,
		}
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		procs, err := c.source.Processes(ctx, c.interval)
		if err != nil {
			return fmt.Errorf("processes: %w", err)
		}
		top := topByCPU(procs, TopProcesses)
		mu.Lock()
		info.Processes = top
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Collector) network(ctx context.Context) (NetworkInfo, error) {
	var n NetworkInfo

	counters, err := c.source.NetIO(ctx)
	if err != nil {
		return n, fmt.Errorf("network counters: %w", err)
	}
	for _, io := range counters {
		n.BytesSent += io.BytesSent
		n.BytesRecv += io.BytesRecv
		n.PacketsSent += io.PacketsSent
		n.PacketsRecv += io.PacketsRecv
	}

	ifaces, err := c.source.Interfaces(ctx)
	if err != nil {
		return n, fmt.Errorf("network interfaces: %w", err)
	}
	n.Interfaces = make(map[string]InterfaceInfo, len(ifaces))
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, a.Addr)
		}
		n.Interfaces[iface.Name] = InterfaceInfo{
			Addresses: addrs,
			IsUp:      slices.Contains(iface.Flags, "up"),
			MTU:       iface.MTU,
		}
	}
	return n, nil
}

func topByCPU(procs []ProcessInfo, n int) []ProcessInfo {
	sorted := slices.Clone(procs)
	slices.SortStableFunc(sorted, func(a, b ProcessInfo) int {
		switch {
		case a.CPUPercent > b.CPUPercent:
			return -1
		case a.CPUPercent < b.CPUPercent:
			return 1
		default:
			return 0
		}
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
