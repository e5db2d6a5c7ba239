package telemetry

import "time"

// SystemInfo is one host telemetry snapshot
type SystemInfo struct {
	Timestamp time.Time     `json:"timestamp"`
	CPU       CPUInfo       `json:"cpu"`
	Memory    MemoryInfo    `json:"memory"`
	Swap      SwapInfo      `json:"swap"`
	Disk      DiskInfo      `json:"disk"`
	Network   NetworkInfo   `json:"network"`
	System    HostInfo      `json:"system"`
	Processes []ProcessInfo `json:"processes"`
}

type CPUInfo struct {
	Percent   float64       `json:"percent"`
	Count     int           `json:"count"`
	Frequency FrequencyInfo `json:"frequency"`
	PerCore   []float64     `json:"per_core"`
}

// FrequencyInfo is in MHz; nil when the platform does not report it
type FrequencyInfo struct {
	Current *float64 `json:"current"`
}

type MemoryInfo struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Percent   float64 `json:"percent"`
	Free      uint64  `json:"free"`
}

type SwapInfo struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
}

type DiskInfo struct {
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	Percent    float64 `json:"percent"`
	ReadBytes  uint64  `json:"read_bytes"`
	WriteBytes uint64  `json:"write_bytes"`
}

type NetworkInfo struct {
	BytesSent   uint64                   `json:"bytes_sent"`
	BytesRecv   uint64                   `json:"bytes_recv"`
	PacketsSent uint64                   `json:"packets_sent"`
	PacketsRecv uint64                   `json:"packets_recv"`
	Interfaces  map[string]InterfaceInfo `json:"interfaces"`
}

type InterfaceInfo struct {
	Addresses []string `json:"addresses"`
	IsUp      bool     `json:"isup"`
	MTU       int      `json:"mtu"`
}

type HostInfo struct {
	Platform        string    `json:"platform"`
	PlatformRelease string    `json:"platform_release"`
	PlatformVersion string    `json:"platform_version"`
	Architecture    string    `json:"architecture"`
	Hostname        string    `json:"hostname"`
	BootTime        time.Time `json:"boot_time"`
	UptimeSeconds   uint64    `json:"uptime_seconds"`
	UptimeDays      uint64    `json:"uptime_days"`
}

type ProcessInfo struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float32 `json:"memory_percent"`
	Status        string  `json:"status"`
}
