package domain

import "errors"

var (
	// ErrCapacityUnavailable means host capacity could not be read. Fatal to a run.
	ErrCapacityUnavailable = errors.New("host capacity unavailable")

	// ErrInvalidCapacity means host capacity was read but is nonsensical (zero cores or memory).
	ErrInvalidCapacity = errors.New("invalid host capacity")

	// ErrAllocationFailed means a memory hold worker could not obtain its block.
	ErrAllocationFailed = errors.New("memory allocation failed")

	// ErrWorkerAbandoned means a worker did not finish within its join timeout.
	ErrWorkerAbandoned = errors.New("worker abandoned after join timeout")

	// ErrRunInProgress is returned when a spike is triggered while another is still running.
	ErrRunInProgress = errors.New("a load spike is already running")
)
