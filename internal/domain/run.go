package domain

import "time"

// WorkerOutcome records how a single worker ended
type WorkerOutcome struct {
	Kind           WorkerKind    `json:"kind" yaml:"kind"`
	Index          int           `json:"index" yaml:"index"`
	Status         WorkerStatus  `json:"status" yaml:"status"`
	RequestedBytes uint64        `json:"requested_bytes,omitempty" yaml:"requested_bytes,omitempty"`
	Elapsed        time.Duration `json:"elapsed" yaml:"elapsed"`
	Error          string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunReport is produced by the coordinator at the end of a run
type RunReport struct {
	ID                 string    `json:"id" yaml:"id"`
	CPUWorkerCount     int       `json:"cpu_worker_count" yaml:"cpu_worker_count"`
	MemoryTargetBytes  uint64    `json:"memory_target_bytes" yaml:"memory_target_bytes"`
	RunDurationSeconds int       `json:"run_duration_seconds" yaml:"run_duration_seconds"`
	Completed          bool      `json:"completed" yaml:"completed"`
	StartedAt          time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt         time.Time `json:"finished_at" yaml:"finished_at"`

	// MemoryAllocatedBytes is the memory actually held, after failed allocations
	MemoryAllocatedBytes uint64          `json:"memory_allocated_bytes" yaml:"memory_allocated_bytes"`
	FailedAllocations    int             `json:"failed_allocations" yaml:"failed_allocations"`
	AbandonedWorkers     int             `json:"abandoned_workers" yaml:"abandoned_workers"`
	Workers              []WorkerOutcome `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Duration returns the wall-clock time between start and finish
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PartialMemory reports whether fewer bytes were held than planned
func (r *RunReport) PartialMemory() bool {
	return r.FailedAllocations > 0
}
