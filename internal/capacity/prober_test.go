package capacity

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

func fakeHost(cores int, coreErr error, total uint64, memErr error) *HostProber {
	return &HostProber{
		cpuCounts: func(ctx context.Context, logical bool) (int, error) {
			return cores, coreErr
		},
		memory: func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
			if memErr != nil {
				return nil, memErr
			}
			return &mem.VirtualMemoryStat{Total: total}, nil
		},
	}
}

func TestHostProber_Probe(t *testing.T) {
	p := fakeHost(8, nil, 16*domain.GiB, nil)

	snap, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, snap.LogicalCores)
	assert.Equal(t, 16*domain.GiB, snap.TotalMemoryBytes)
}

func TestHostProber_CoreCountFailure(t *testing.T) {
	p := fakeHost(0, errors.New("no /proc"), 16*domain.GiB, nil)

	_, err := p.Probe(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapacityUnavailable)
}

func TestHostProber_MemoryFailure(t *testing.T) {
	p := fakeHost(4, nil, 0, errors.New("sysinfo failed"))

	_, err := p.Probe(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapacityUnavailable)
}

func TestHostProber_ZeroValues(t *testing.T) {
	_, err := fakeHost(0, nil, domain.GiB, nil).Probe(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)

	_, err = fakeHost(2, nil, 0, nil).Probe(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
}

func TestHostProber_RealHost(t *testing.T) {
	snap, err := NewHostProber().Probe(context.Background())
	if err != nil {
		t.Skipf("host capacity not readable here: %v", err)
	}
	assert.GreaterOrEqual(t, snap.LogicalCores, 1)
	assert.Greater(t, snap.TotalMemoryBytes, uint64(0))
}

func TestStaticProber(t *testing.T) {
	want := domain.CapacitySnapshot{LogicalCores: 2, TotalMemoryBytes: domain.GiB}
	snap, err := StaticProber{Snapshot: want}.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, snap)

	_, err = StaticProber{Err: domain.ErrCapacityUnavailable}.Probe(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapacityUnavailable)

	_, err = StaticProber{}.Probe(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
}
