package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCapacitySnapshot_Validate(t *testing.T) {
	tests := []struct {
		name    string
		snap    CapacitySnapshot
		wantErr bool
	}{
		{"valid", CapacitySnapshot{LogicalCores: 8, TotalMemoryBytes: 16 * GiB}, false},
		{"zero cores", CapacitySnapshot{LogicalCores: 0, TotalMemoryBytes: GiB}, true},
		{"negative cores", CapacitySnapshot{LogicalCores: -1, TotalMemoryBytes: GiB}, true},
		{"zero memory", CapacitySnapshot{LogicalCores: 4}, true},
		{"empty", CapacitySnapshot{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCapacity) {
				t.Errorf("error %v should wrap ErrInvalidCapacity", err)
			}
		})
	}
}

func TestLoadPlan_Durations(t *testing.T) {
	p := LoadPlan{RunDurationSeconds: 600, MemoryWorkerCount: 4, MemoryPerWorkerBytes: 100 * MiB}

	if p.RunDuration() != 10*time.Minute {
		t.Errorf("RunDuration() = %v, want 10m", p.RunDuration())
	}
	if p.PlannedMemoryBytes() != 400*MiB {
		t.Errorf("PlannedMemoryBytes() = %d, want %d", p.PlannedMemoryBytes(), 400*MiB)
	}
}

func TestRunReport_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	r := &RunReport{StartedAt: start}

	if r.Duration() != 0 {
		t.Errorf("unfinished run Duration() = %v, want 0", r.Duration())
	}

	r.FinishedAt = start.Add(5 * time.Minute)
	if r.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %v, want 5m", r.Duration())
	}
}
