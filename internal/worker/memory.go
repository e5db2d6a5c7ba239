package worker

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

const pageSize = 4096

// Block is an allocated memory block owned by exactly one worker
type Block struct {
	data    []byte
	release func()
}

// Len returns the block size in bytes
func (b *Block) Len() int {
	return len(b.data)
}

// Release drops the block. Calling it more than once is a no-op.
func (b *Block) Release() {
	if b.data == nil {
		return
	}
	b.data = nil
	if b.release != nil {
		b.release()
	}
}

// Allocator hands out memory blocks to hold workers
type Allocator interface {
	Allocate(size uint64) (*Block, error)
}

// HeapAllocator allocates from the Go heap, refusing requests that would push
// the host past a ceiling of its currently available memory. A Go
// out-of-memory condition is fatal, so the check has to happen up front.
//
// Admission is serialized: the check, the allocation and the page touch run
// under one lock, so each check sees the blocks admitted before it as used
// memory.
type HeapAllocator struct {
	ceiling     float64
	available   func() (uint64, error)
	outstanding atomic.Int64

	admit sync.Mutex
}

// NewHeapAllocator creates an allocator that admits requests up to
// ceilingPercent of the host's available memory. A ceiling <= 0 disables the check.
func NewHeapAllocator(ceilingPercent float64) *HeapAllocator {
	return &HeapAllocator{
		ceiling: ceilingPercent,
		available: func() (uint64, error) {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return vm.Available, nil
		},
	}
}

// Allocate returns a block of size bytes with every page touched so it is resident
func (a *HeapAllocator) Allocate(size uint64) (blk *Block, err error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: zero-byte request", domain.ErrAllocationFailed)
	}

	a.admit.Lock()
	defer a.admit.Unlock()

	if a.ceiling > 0 && a.available != nil {
		avail, err := a.available()
		if err != nil {
			return nil, fmt.Errorf("%w: reading available memory: %v", domain.ErrAllocationFailed, err)
		}
		limit := uint64(float64(avail) * a.ceiling / 100)
		if size > limit {
			return nil, fmt.Errorf("%w: %d bytes requested, %d admissible", domain.ErrAllocationFailed, size, limit)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			blk = nil
			err = fmt.Errorf("%w: %v", domain.ErrAllocationFailed, r)
		}
	}()

	data := make([]byte, size)
	for i := 0; i < len(data); i += pageSize {
		data[i] = 1
	}

	a.outstanding.Add(int64(size))
	return &Block{
		data: data,
		release: func() {
			a.outstanding.Add(-int64(size))
		},
	}, nil
}

// Outstanding returns the number of bytes currently held by live blocks
func (a *HeapAllocator) Outstanding() uint64 {
	return uint64(a.outstanding.Load())
}

// HoldMemory allocates size bytes, holds them for duration, then releases them.
// A failed allocation returns immediately with ErrAllocationFailed; it is
// never retried or downsized.
func HoldMemory(duration time.Duration, size uint64, alloc Allocator) error {
	blk, err := alloc.Allocate(size)
	if err != nil {
		return err
	}
	defer blk.Release()

	time.Sleep(duration)
	runtime.KeepAlive(blk.data)
	return nil
}
