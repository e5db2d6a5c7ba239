package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/worker"
)

// sleepBurn stands in for the CPU burner so tests do not load the machine
func sleepBurn(deadline time.Time, intensity float64) {
	time.Sleep(time.Until(deadline))
}

// flakyAllocator fails every request whose ordinal is in failOn
type flakyAllocator struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
	heap   *worker.HeapAllocator
}

func (f *flakyAllocator) Allocate(size uint64) (*worker.Block, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	f.mu.Unlock()
	if f.failOn[n] {
		return nil, domain.ErrAllocationFailed
	}
	return f.heap.Allocate(size)
}

func testPlan() domain.LoadPlan {
	return domain.LoadPlan{
		CPUWorkerCount:       2,
		CPUIntensity:         0.4,
		RAMIntensity:         0.4,
		MemoryTargetBytes:    4 * domain.MiB,
		MemoryWorkerCount:    2,
		MemoryPerWorkerBytes: 2 * domain.MiB,
		RunDurationSeconds:   1,
	}
}

func TestCoordinator_Execute(t *testing.T) {
	alloc := worker.NewHeapAllocator(0)

	var mu sync.Mutex
	var states []domain.RunState

	c := NewCoordinator(CoordinatorConfig{
		JoinGrace: 500 * time.Millisecond,
		Allocator: alloc,
		BurnCPU:   sleepBurn,
		OnStateChange: func(s domain.RunState) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})

	report := c.Execute(testPlan())

	require.NotNil(t, report)
	assert.True(t, report.Completed)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 2, report.CPUWorkerCount)
	assert.Equal(t, 4*domain.MiB, report.MemoryTargetBytes)
	assert.Equal(t, 1, report.RunDurationSeconds)
	assert.Equal(t, 4*domain.MiB, report.MemoryAllocatedBytes)
	assert.Zero(t, report.FailedAllocations)
	assert.Zero(t, report.AbandonedWorkers)
	assert.Len(t, report.Workers, 4)
	for _, w := range report.Workers {
		assert.Equal(t, domain.WorkerFinished, w.Status)
	}
	assert.GreaterOrEqual(t, report.Duration(), time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.RunState{
		domain.StateSpawning,
		domain.StateWaitingOnWorkers,
		domain.StateReporting,
		domain.StateDone,
	}, states)

	assert.Equal(t, uint64(0), alloc.Outstanding(), "all blocks released after the run")
}

func TestCoordinator_PartialAllocationFailure(t *testing.T) {
	alloc := &flakyAllocator{failOn: map[int]bool{0: true}, heap: worker.NewHeapAllocator(0)}

	c := NewCoordinator(CoordinatorConfig{
		JoinGrace: 500 * time.Millisecond,
		Allocator: alloc,
		BurnCPU:   sleepBurn,
	})

	report := c.Execute(testPlan())

	assert.True(t, report.Completed, "allocation failure must not fail the run")
	assert.Equal(t, 1, report.FailedAllocations)
	assert.Equal(t, 2*domain.MiB, report.MemoryAllocatedBytes)
	assert.Zero(t, report.AbandonedWorkers)

	var failed int
	for _, w := range report.Workers {
		if w.Status == domain.WorkerAllocationError {
			failed++
			assert.Equal(t, domain.WorkerMemory, w.Kind)
			assert.Contains(t, w.Error, domain.ErrAllocationFailed.Error())
		}
	}
	assert.Equal(t, 1, failed)
}

func TestCoordinator_AbandonsStuckWorkers(t *testing.T) {
	stuck := func(deadline time.Time, intensity float64) {
		time.Sleep(time.Until(deadline) + 3*time.Second)
	}

	c := NewCoordinator(CoordinatorConfig{
		JoinGrace: 200 * time.Millisecond,
		Allocator: worker.NewHeapAllocator(0),
		BurnCPU:   stuck,
	})

	plan := testPlan()
	start := time.Now()
	report := c.Execute(plan)
	elapsed := time.Since(start)

	assert.True(t, report.Completed)
	assert.Equal(t, 2, report.AbandonedWorkers)
	assert.Less(t, elapsed, c.JoinTimeout(plan)+time.Second, "wait must be bounded by the join timeout")

	for _, w := range report.Workers {
		if w.Kind == domain.WorkerCPU {
			assert.Equal(t, domain.WorkerAbandoned, w.Status)
			assert.Equal(t, domain.ErrWorkerAbandoned.Error(), w.Error)
		} else {
			assert.Equal(t, domain.WorkerFinished, w.Status)
		}
	}
}

func TestCoordinator_WorkerCountCallback(t *testing.T) {
	var mu sync.Mutex
	peak, last := 0, -1

	c := NewCoordinator(CoordinatorConfig{
		JoinGrace: 500 * time.Millisecond,
		Allocator: worker.NewHeapAllocator(0),
		BurnCPU:   sleepBurn,
		OnWorkersChanged: func(active int) {
			mu.Lock()
			defer mu.Unlock()
			if active > peak {
				peak = active
			}
			last = active
		},
	})

	c.Execute(testPlan())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == 0
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, peak)
}

func TestCoordinator_Defaults(t *testing.T) {
	c := NewCoordinator(CoordinatorConfig{})
	assert.Equal(t, DefaultJoinGrace, c.config.JoinGrace)
	assert.NotNil(t, c.config.Allocator)
	assert.NotNil(t, c.config.BurnCPU)

	plan := domain.LoadPlan{RunDurationSeconds: 600}
	assert.Equal(t, 610*time.Second, c.JoinTimeout(plan))
}

func TestSummary(t *testing.T) {
	plan := testPlan()
	start := time.Now()
	report := &domain.RunReport{
		StartedAt:            start,
		FinishedAt:           start.Add(2 * time.Second),
		MemoryAllocatedBytes: 2 * domain.MiB,
		FailedAllocations:    1,
		AbandonedWorkers:     2,
	}

	s := Summary(plan, report)
	assert.Contains(t, s, "completed in 2s")
	assert.Contains(t, s, "cpu 2 workers at 40% intensity")
	assert.Contains(t, s, "planned 4.0 MiB / held 2.0 MiB")
	assert.Contains(t, s, "1 allocation(s) failed")
	assert.Contains(t, s, "2 worker(s) abandoned")
}
