package domain

import "time"

// LoadPlan is the computed resource target and duration for one run.
// It is created once by the planner and never modified afterwards.
type LoadPlan struct {
	CPUWorkerCount       int     `json:"cpu_worker_count" yaml:"cpu_worker_count"`
	CPUIntensity         float64 `json:"cpu_intensity" yaml:"cpu_intensity"`
	RAMIntensity         float64 `json:"ram_intensity" yaml:"ram_intensity"`
	MemoryTargetBytes    uint64  `json:"memory_target_bytes" yaml:"memory_target_bytes"`
	MemoryWorkerCount    int     `json:"memory_worker_count" yaml:"memory_worker_count"`
	MemoryPerWorkerBytes uint64  `json:"memory_per_worker_bytes" yaml:"memory_per_worker_bytes"`
	RunDurationSeconds   int     `json:"run_duration_seconds" yaml:"run_duration_seconds"`
}

// RunDuration returns the planned hold time
func (p LoadPlan) RunDuration() time.Duration {
	return time.Duration(p.RunDurationSeconds) * time.Second
}

// PlannedMemoryBytes returns the memory the workers will request in total
func (p LoadPlan) PlannedMemoryBytes() uint64 {
	return uint64(p.MemoryWorkerCount) * p.MemoryPerWorkerBytes
}
