// Package coordinator runs a load plan: it spawns the CPU and memory workers,
// bounds how long it waits for them, and reports the outcome.
package coordinator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/worker"
)

// DefaultJoinGrace is the margin over the run duration the coordinator waits for each worker
const DefaultJoinGrace = 10 * time.Second

// CoordinatorConfig configures the coordinator
type CoordinatorConfig struct {
	JoinGrace time.Duration
	Allocator worker.Allocator

	// BurnCPU replaces the CPU worker body; nil uses worker.BurnCPU
	BurnCPU func(deadline time.Time, intensity float64)

	OnStateChange    func(state domain.RunState)
	OnWorkersChanged func(active int)
}

// Coordinator executes load plans
type Coordinator struct {
	config CoordinatorConfig
}

// NewCoordinator creates a new coordinator
func NewCoordinator(config CoordinatorConfig) *Coordinator {
	if config.JoinGrace <= 0 {
		config.JoinGrace = DefaultJoinGrace
	}
	if config.Allocator == nil {
		config.Allocator = worker.NewHeapAllocator(90)
	}
	if config.BurnCPU == nil {
		config.BurnCPU = worker.BurnCPU
	}
	return &Coordinator{config: config}
}

// JoinTimeout returns how long the coordinator waits for each worker of plan
func (c *Coordinator) JoinTimeout(plan domain.LoadPlan) time.Duration {
	return plan.RunDuration() + c.config.JoinGrace
}

// Execute spawns every worker of plan, waits for each up to its join
// timeout, and returns the run report.
//
// Workers cannot be cancelled. A worker still running at its join timeout is
// abandoned: the report is produced without it and it releases its resources
// whenever its own deadline passes. Execute therefore bounds how long the
// caller waits, not how long the load lasts.
func (c *Coordinator) Execute(plan domain.LoadPlan) *domain.RunReport {
	report := &domain.RunReport{
		ID:                 uuid.NewString(),
		CPUWorkerCount:     plan.CPUWorkerCount,
		MemoryTargetBytes:  plan.MemoryTargetBytes,
		RunDurationSeconds: plan.RunDurationSeconds,
		StartedAt:          time.Now(),
	}

	logger := log.WithField("run_id", report.ID)
	logger.Infof("Spiking CPU (%d cores) and RAM (%s) for %d seconds",
		plan.CPUWorkerCount, humanize.IBytes(plan.MemoryTargetBytes), plan.RunDurationSeconds)

	c.setState(domain.StateSpawning)
	handles := c.spawn(plan)

	c.setState(domain.StateWaitingOnWorkers)
	grace := c.config.JoinGrace
	for _, h := range handles {
		outcome := domain.WorkerOutcome{
			Kind:           h.Kind,
			Index:          h.Index,
			RequestedBytes: h.RequestedBytes,
		}

		deadline := h.Started().Add(plan.RunDuration() + grace)
		if !h.Join(deadline) {
			outcome.Status = domain.WorkerAbandoned
			outcome.Error = domain.ErrWorkerAbandoned.Error()
			report.AbandonedWorkers++
			if h.Kind == domain.WorkerMemory {
				// Allocation failures return at once, so a worker still running holds its block
				report.MemoryAllocatedBytes += h.RequestedBytes
			}
			logger.WithFields(log.Fields{
				"kind":  h.Kind,
				"index": h.Index,
			}).Warn("worker did not finish within join timeout, abandoning")
		} else if err := h.Err(); err != nil {
			outcome.Status = domain.WorkerAllocationError
			outcome.Error = err.Error()
			if errors.Is(err, domain.ErrAllocationFailed) {
				report.FailedAllocations++
			}
			logger.WithFields(log.Fields{
				"kind":  h.Kind,
				"index": h.Index,
			}).WithError(err).Warn("worker failed")
		} else {
			outcome.Status = domain.WorkerFinished
			if h.Kind == domain.WorkerMemory {
				report.MemoryAllocatedBytes += h.RequestedBytes
			}
		}
		outcome.Elapsed = h.Elapsed()
		report.Workers = append(report.Workers, outcome)
	}

	c.setState(domain.StateReporting)
	report.Completed = true
	report.FinishedAt = time.Now()
	logger.Info(Summary(plan, report))

	c.setState(domain.StateDone)
	return report
}

func (c *Coordinator) spawn(plan domain.LoadPlan) []*worker.Handle {
	total := plan.CPUWorkerCount + plan.MemoryWorkerCount
	live := worker.NewLiveCounter(c.config.OnWorkersChanged)

	duration := plan.RunDuration()
	handles := make([]*worker.Handle, 0, total)

	for i := 0; i < plan.CPUWorkerCount; i++ {
		deadline := time.Now().Add(duration)
		burn := c.config.BurnCPU
		intensity := plan.CPUIntensity
		handles = append(handles, worker.Spawn(domain.WorkerCPU, i, 0, live, func() error {
			burn(deadline, intensity)
			return nil
		}))
	}

	alloc := c.config.Allocator
	size := plan.MemoryPerWorkerBytes
	for i := 0; i < plan.MemoryWorkerCount; i++ {
		handles = append(handles, worker.Spawn(domain.WorkerMemory, i, size, live, func() error {
			return worker.HoldMemory(duration, size, alloc)
		}))
	}

	return handles
}

func (c *Coordinator) setState(state domain.RunState) {
	log.WithField("state", state).Debug("run state changed")
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(state)
	}
}

// Summary renders planned versus actual resource usage for a finished run
func Summary(plan domain.LoadPlan, report *domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CPU/RAM spike task completed in %s: ", report.Duration().Round(time.Second))
	fmt.Fprintf(&b, "cpu %d workers at %.0f%% intensity, ", plan.CPUWorkerCount, plan.CPUIntensity*100)
	fmt.Fprintf(&b, "memory planned %s / held %s across %d workers",
		humanize.IBytes(plan.PlannedMemoryBytes()),
		humanize.IBytes(report.MemoryAllocatedBytes),
		plan.MemoryWorkerCount)
	if report.FailedAllocations > 0 {
		fmt.Fprintf(&b, ", %d allocation(s) failed", report.FailedAllocations)
	}
	if report.AbandonedWorkers > 0 {
		fmt.Fprintf(&b, ", %d worker(s) abandoned", report.AbandonedWorkers)
	}
	return b.String()
}
