package domain

import "fmt"

// CapacitySnapshot is a point-in-time read of host capacity, taken once per run
type CapacitySnapshot struct {
	LogicalCores     int    `json:"logical_cores" yaml:"logical_cores"`
	TotalMemoryBytes uint64 `json:"total_memory_bytes" yaml:"total_memory_bytes"`
}

// Validate rejects snapshots that cannot be planned against
func (c CapacitySnapshot) Validate() error {
	if c.LogicalCores <= 0 {
		return fmt.Errorf("%w: %d logical cores", ErrInvalidCapacity, c.LogicalCores)
	}
	if c.TotalMemoryBytes == 0 {
		return fmt.Errorf("%w: zero total memory", ErrInvalidCapacity)
	}
	return nil
}
