package worker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

type failingAllocator struct {
	calls int
}

func (f *failingAllocator) Allocate(size uint64) (*Block, error) {
	f.calls++
	return nil, domain.ErrAllocationFailed
}

func TestHoldMemory_HoldsAndReleases(t *testing.T) {
	alloc := NewHeapAllocator(0)

	done := make(chan error, 1)
	start := time.Now()
	go func() {
		done <- HoldMemory(100*time.Millisecond, 50*domain.MiB, alloc)
	}()

	// While held, the block is outstanding
	require.Eventually(t, func() bool {
		return alloc.Outstanding() == 50*domain.MiB
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, uint64(0), alloc.Outstanding(), "block should be released after the hold")
}

func TestHoldMemory_FastFailOnAllocationError(t *testing.T) {
	alloc := &failingAllocator{}

	start := time.Now()
	err := HoldMemory(time.Hour, 100*domain.MiB, alloc)

	assert.ErrorIs(t, err, domain.ErrAllocationFailed)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "failed worker must not sleep")
	assert.Equal(t, 1, alloc.calls, "failed allocation must not be retried")
}

func TestHeapAllocator_Ceiling(t *testing.T) {
	alloc := NewHeapAllocator(50)
	alloc.available = func() (uint64, error) { return 100 * domain.MiB, nil }

	_, err := alloc.Allocate(60 * domain.MiB)
	assert.ErrorIs(t, err, domain.ErrAllocationFailed)

	blk, err := alloc.Allocate(10 * domain.MiB)
	require.NoError(t, err)
	assert.Equal(t, int(10*domain.MiB), blk.Len())
	assert.Equal(t, 10*domain.MiB, alloc.Outstanding())

	blk.Release()
	blk.Release()
	assert.Equal(t, uint64(0), alloc.Outstanding())
}

func TestHeapAllocator_ConcurrentRequestsRespectCeiling(t *testing.T) {
	alloc := NewHeapAllocator(90)
	alloc.available = func() (uint64, error) {
		return 100*domain.MiB - alloc.Outstanding(), nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted []*Block
		refused  int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blk, err := alloc.Allocate(40 * domain.MiB)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrAllocationFailed)
				refused++
				return
			}
			admitted = append(admitted, blk)
		}()
	}
	wg.Wait()

	// 40 of 90 admissible, then 40 of 54, then 40 of 18 is refused
	assert.Len(t, admitted, 2)
	assert.Equal(t, 2, refused)
	assert.Equal(t, 80*domain.MiB, alloc.Outstanding())

	for _, blk := range admitted {
		blk.Release()
	}
	assert.Equal(t, uint64(0), alloc.Outstanding())
}

func TestHeapAllocator_AvailableReadFails(t *testing.T) {
	alloc := NewHeapAllocator(90)
	alloc.available = func() (uint64, error) { return 0, errors.New("no meminfo") }

	_, err := alloc.Allocate(domain.MiB)
	assert.ErrorIs(t, err, domain.ErrAllocationFailed)
}

func TestHeapAllocator_ZeroSize(t *testing.T) {
	_, err := NewHeapAllocator(0).Allocate(0)
	assert.ErrorIs(t, err, domain.ErrAllocationFailed)
}

func TestHeapAllocator_ImpossibleSize(t *testing.T) {
	// makeslice panics on a length beyond the address space; that must surface as an error
	_, err := NewHeapAllocator(0).Allocate(1 << 62)
	assert.ErrorIs(t, err, domain.ErrAllocationFailed)
}
