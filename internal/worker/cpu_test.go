package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBurnCPU_StopsAtDeadline(t *testing.T) {
	start := time.Now()
	BurnCPU(start.Add(50*time.Millisecond), 0.4)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second, "burner overran its deadline")
}

func TestBurnCPU_PastDeadlineReturnsImmediately(t *testing.T) {
	start := time.Now()
	BurnCPU(start.Add(-time.Second), 0.5)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestBurstSize(t *testing.T) {
	tests := []struct {
		intensity float64
		want      int
	}{
		{0.30, 300},
		{0.50, 500},
		{0.4567, 456},
		{0, 1},
	}
	for _, tt := range tests {
		if got := burstSize(tt.intensity); got != tt.want {
			t.Errorf("burstSize(%v) = %d, want %d", tt.intensity, got, tt.want)
		}
	}
}

func TestBurst(t *testing.T) {
	// 0 + 1 + 4 + 9
	assert.Equal(t, uint64(14), burst(4))
}
