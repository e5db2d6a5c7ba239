package domain

// RunState represents the lifecycle state of a load spike run
type RunState string

const (
	StatePlanning         RunState = "planning"
	StateSpawning         RunState = "spawning"
	StateWaitingOnWorkers RunState = "waiting_on_workers"
	StateReporting        RunState = "reporting"
	StateDone             RunState = "done"
)

// WorkerKind distinguishes the two worker types
type WorkerKind string

const (
	WorkerCPU    WorkerKind = "cpu"
	WorkerMemory WorkerKind = "memory"
)

// WorkerStatus represents how a worker's lifecycle ended from the coordinator's view
type WorkerStatus string

const (
	WorkerFinished        WorkerStatus = "finished"
	WorkerAllocationError WorkerStatus = "allocation_failed"
	WorkerAbandoned       WorkerStatus = "abandoned"
)

// Byte size units
const (
	KiB uint64 = 1 << 10
	MiB uint64 = 1 << 20
	GiB uint64 = 1 << 30
)
