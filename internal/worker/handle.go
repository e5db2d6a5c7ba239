package worker

import (
	"time"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

// Task is the body of a worker. A non-nil error is recorded on the handle.
type Task func() error

// Handle is the coordinator's only reference to a running worker. It exposes
// completion, never the worker's internals.
type Handle struct {
	Kind           domain.WorkerKind
	Index          int
	RequestedBytes uint64

	started  time.Time
	done     chan struct{}
	err      error
	finished time.Time
}

// Spawn starts task on its own goroutine. A non-nil live counter counts the
// worker from spawn until the task returns.
func Spawn(kind domain.WorkerKind, index int, requested uint64, live *LiveCounter, task Task) *Handle {
	h := &Handle{
		Kind:           kind,
		Index:          index,
		RequestedBytes: requested,
		started:        time.Now(),
		done:           make(chan struct{}),
	}

	if live != nil {
		live.add(1)
	}
	go func() {
		defer close(h.done)
		if live != nil {
			defer live.add(-1)
		}
		h.err = task()
		h.finished = time.Now()
	}()
	return h
}

// Started returns when the worker was spawned
func (h *Handle) Started() time.Time {
	return h.started
}

// Done is closed when the worker returns
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Join waits until the worker returns or deadline passes. It reports whether
// the worker finished; an unfinished worker keeps running.
func (h *Handle) Join(deadline time.Time) bool {
	wait := time.Until(deadline)
	if wait <= 0 {
		select {
		case <-h.done:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	}
}

// Err returns the worker's error. Only meaningful once Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Elapsed returns how long the worker ran, or has been running so far
func (h *Handle) Elapsed() time.Duration {
	select {
	case <-h.done:
		return h.finished.Sub(h.started)
	default:
		return time.Since(h.started)
	}
}
