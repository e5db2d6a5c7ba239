package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

func TestSpawn_JoinFinished(t *testing.T) {
	live := NewLiveCounter(nil)
	h := Spawn(domain.WorkerCPU, 0, 0, live, func() error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	assert.Equal(t, 1, live.Active())
	require.True(t, h.Join(time.Now().Add(time.Second)))
	assert.NoError(t, h.Err())
	assert.GreaterOrEqual(t, h.Elapsed(), 10*time.Millisecond)

	// The count drops before the handle's done channel closes
	assert.Equal(t, 0, live.Active())
}

func TestSpawn_JoinTimesOutWithoutStoppingWorker(t *testing.T) {
	release := make(chan struct{})
	h := Spawn(domain.WorkerMemory, 3, domain.MiB, nil, func() error {
		<-release
		return errors.New("late")
	})

	start := time.Now()
	assert.False(t, h.Join(start.Add(20*time.Millisecond)))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.NoError(t, h.Err(), "error is not visible before the worker returns")

	close(release)
	<-h.Done()
	assert.EqualError(t, h.Err(), "late")
	assert.Equal(t, 3, h.Index)
	assert.Equal(t, domain.MiB, h.RequestedBytes)
}

func TestHandle_JoinPastDeadline(t *testing.T) {
	h := Spawn(domain.WorkerCPU, 0, 0, nil, func() error { return nil })
	<-h.Done()
	assert.True(t, h.Join(time.Now().Add(-time.Minute)), "finished worker joins even after the deadline")

	blocked := make(chan struct{})
	defer close(blocked)
	stuck := Spawn(domain.WorkerCPU, 1, 0, nil, func() error { <-blocked; return nil })
	assert.False(t, stuck.Join(time.Now().Add(-time.Minute)))
}
