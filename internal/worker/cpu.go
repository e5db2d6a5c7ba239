// Package worker provides the CPU burn and memory hold workers used during a
// load spike, and the handles the coordinator joins them through.
package worker

import (
	"sync/atomic"
	"time"
)

// BurstYield is the pause between bursts so the scheduler can preempt a burner.
const BurstYield = time.Millisecond

// sink keeps burst results observable so the loop is not optimised away
var sink atomic.Uint64

// BurnCPU consumes roughly one core until deadline. Each burst sums
// int(intensity*1000) squares, then sleeps for BurstYield.
//
// There is no stop signal: the deadline fixed at creation is the only control.
func BurnCPU(deadline time.Time, intensity float64) {
	n := burstSize(intensity)
	var acc uint64
	for time.Now().Before(deadline) {
		acc += burst(n)
		time.Sleep(BurstYield)
	}
	sink.Add(acc)
}

func burstSize(intensity float64) int {
	n := int(intensity * 1000)
	if n < 1 {
		n = 1
	}
	return n
}

func burst(n int) uint64 {
	var sum uint64
	for i := 0; i < n; i++ {
		sum += uint64(i) * uint64(i)
	}
	return sum
}
