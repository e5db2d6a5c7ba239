package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/runstore"
)

// RunStateEvent is broadcast on every run state transition
type RunStateEvent struct {
	State string    `json:"state"`
	Time  time.Time `json:"time"`
}

// RunResponse is the API response for a run
type RunResponse struct {
	ID                   string                 `json:"id"`
	CPUWorkerCount       int                    `json:"cpu_worker_count"`
	MemoryTargetBytes    uint64                 `json:"memory_target_bytes"`
	MemoryAllocatedBytes uint64                 `json:"memory_allocated_bytes"`
	RunDurationSeconds   int                    `json:"run_duration_seconds"`
	Completed            bool                   `json:"completed"`
	FailedAllocations    int                    `json:"failed_allocations"`
	AbandonedWorkers     int                    `json:"abandoned_workers"`
	StartedAt            string                 `json:"started_at"`
	FinishedAt           *string                `json:"finished_at,omitempty"`
	Elapsed              string                 `json:"elapsed"`
	Workers              []domain.WorkerOutcome `json:"workers,omitempty"`
}

// StatsResponse is the API response for run history totals
type StatsResponse struct {
	Runs              int     `json:"runs"`
	Completed         int     `json:"completed"`
	AbandonedWorkers  int     `json:"abandoned_workers"`
	FailedAllocations int     `json:"failed_allocations"`
	LastRunAt         *string `json:"last_run_at,omitempty"`
}

func runToResponse(r *domain.RunReport) RunResponse {
	resp := RunResponse{
		ID:                   r.ID,
		CPUWorkerCount:       r.CPUWorkerCount,
		MemoryTargetBytes:    r.MemoryTargetBytes,
		MemoryAllocatedBytes: r.MemoryAllocatedBytes,
		RunDurationSeconds:   r.RunDurationSeconds,
		Completed:            r.Completed,
		FailedAllocations:    r.FailedAllocations,
		AbandonedWorkers:     r.AbandonedWorkers,
		StartedAt:            r.StartedAt.Format(time.RFC3339),
		Elapsed:              r.Duration().Round(time.Second).String(),
		Workers:              r.Workers,
	}
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &t
	}
	return resp
}

func (s *Server) dashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		page, err := staticFiles.ReadFile("static/dashboard.html")
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}

func (s *Server) systemInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.collector == nil {
			writeError(w, http.StatusServiceUnavailable, "telemetry not available")
			return
		}

		info, err := s.collector.Collect(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, info)
	}
}

func (s *Server) listRunsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "run history not available")
			return
		}

		opts := runstore.ListOptions{Limit: 50}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			opts.Limit = n
		}
		opts.CompletedOnly = r.URL.Query().Get("completed") == "true"

		runs, err := s.store.ListRuns(opts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		responses := make([]RunResponse, len(runs))
		for i, run := range runs {
			responses[i] = runToResponse(run)
		}

		writeJSON(w, responses)
	}
}

func (s *Server) getRunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "run history not available")
			return
		}

		// Extract run ID from path: /api/runs/{id}
		id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, http.StatusBadRequest, "run ID required")
			return
		}

		run, err := s.store.GetRun(id)
		if errors.Is(err, runstore.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, runToResponse(run))
	}
}

func (s *Server) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, "run history not available")
			return
		}

		st, err := s.store.Stats()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := StatsResponse{
			Runs:              st.Runs,
			Completed:         st.Completed,
			AbandonedWorkers:  st.AbandonedWorkers,
			FailedAllocations: st.FailedAllocations,
		}
		if !st.LastRunAt.IsZero() {
			t := st.LastRunAt.Format(time.RFC3339)
			resp.LastRunAt = &t
		}
		writeJSON(w, resp)
	}
}
