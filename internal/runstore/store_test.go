package runstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(id string, started time.Time) *domain.RunReport {
	return &domain.RunReport{
		ID:                   id,
		CPUWorkerCount:       3,
		MemoryTargetBytes:    6 * domain.GiB,
		RunDurationSeconds:   600,
		Completed:            true,
		StartedAt:            started,
		FinishedAt:           started.Add(600 * time.Second),
		MemoryAllocatedBytes: 4 * domain.GiB,
		FailedAllocations:    1,
		AbandonedWorkers:     1,
		Workers: []domain.WorkerOutcome{
			{Kind: domain.WorkerCPU, Index: 0, Status: domain.WorkerFinished, Elapsed: 600 * time.Second},
			{Kind: domain.WorkerCPU, Index: 1, Status: domain.WorkerAbandoned, Elapsed: 610 * time.Second, Error: "worker abandoned"},
			{Kind: domain.WorkerMemory, Index: 0, Status: domain.WorkerAllocationError, RequestedBytes: 2 * domain.GiB, Error: "allocation failed"},
		},
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.SaveReport(sampleReport("run-1", started)); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}

	if got.CPUWorkerCount != 3 {
		t.Errorf("CPUWorkerCount = %d, want 3", got.CPUWorkerCount)
	}
	if got.MemoryTargetBytes != 6*domain.GiB {
		t.Errorf("MemoryTargetBytes = %d, want %d", got.MemoryTargetBytes, 6*domain.GiB)
	}
	if got.MemoryAllocatedBytes != 4*domain.GiB {
		t.Errorf("MemoryAllocatedBytes = %d, want %d", got.MemoryAllocatedBytes, 4*domain.GiB)
	}
	if !got.Completed {
		t.Error("Completed = false, want true")
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Duration() != 600*time.Second {
		t.Errorf("Duration() = %v, want 10m", got.Duration())
	}
	if len(got.Workers) != 3 {
		t.Fatalf("Workers count = %d, want 3", len(got.Workers))
	}
	if got.Workers[1].Status != domain.WorkerAbandoned {
		t.Errorf("Workers[1].Status = %q, want abandoned", got.Workers[1].Status)
	}
	if got.Workers[2].RequestedBytes != 2*domain.GiB {
		t.Errorf("Workers[2].RequestedBytes = %d", got.Workers[2].RequestedBytes)
	}
	if got.Workers[0].Error != "" {
		t.Errorf("Workers[0].Error = %q, want empty", got.Workers[0].Error)
	}
}

func TestStore_SaveReportTwiceReplacesOutcomes(t *testing.T) {
	store := newTestStore(t)
	report := sampleReport("run-1", time.Now().UTC())

	if err := store.SaveReport(report); err != nil {
		t.Fatal(err)
	}
	report.Workers = report.Workers[:1]
	if err := store.SaveReport(report); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Workers) != 1 {
		t.Errorf("Workers count = %d, want 1", len(got.Workers))
	}
}

func TestStore_GetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		r := sampleReport(id, base.Add(time.Duration(i)*time.Hour))
		if id == "b" {
			r.Completed = false
		}
		if err := store.SaveReport(r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all newest first", ListOptions{}, []string{"c", "b", "a"}},
		{"limit", ListOptions{Limit: 2}, []string{"c", "b"}},
		{"completed only", ListOptions{CompletedOnly: true}, []string{"c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("got %d runs, want %d", len(runs), len(tt.want))
			}
			for i, r := range runs {
				if r.ID != tt.want[i] {
					t.Errorf("runs[%d].ID = %q, want %q", i, r.ID, tt.want[i])
				}
				if r.Workers != nil {
					t.Errorf("runs[%d].Workers should not be loaded", i)
				}
			}
		})
	}
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)

	st, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Runs != 0 || !st.LastRunAt.IsZero() {
		t.Errorf("empty Stats() = %+v", st)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b"} {
		if err := store.SaveReport(sampleReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	st, err = store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Runs != 2 || st.Completed != 2 {
		t.Errorf("Runs/Completed = %d/%d, want 2/2", st.Runs, st.Completed)
	}
	if st.AbandonedWorkers != 2 {
		t.Errorf("AbandonedWorkers = %d, want 2", st.AbandonedWorkers)
	}
	if st.FailedAllocations != 2 {
		t.Errorf("FailedAllocations = %d, want 2", st.FailedAllocations)
	}
	if !st.LastRunAt.Equal(base.Add(time.Hour)) {
		t.Errorf("LastRunAt = %v, want %v", st.LastRunAt, base.Add(time.Hour))
	}
}

func TestStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveReport(sampleReport("persisted", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if _, err := reopened.GetRun("persisted"); err != nil {
		t.Errorf("GetRun() after reopen error = %v", err)
	}
}
