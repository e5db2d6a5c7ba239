// Package spike triggers a single load spike: probe, plan, execute, then
// persist and announce the report.
package spike

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/hochfrequenz/loadspike/internal/capacity"
	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/metrics"
	"github.com/hochfrequenz/loadspike/internal/notify"
	"github.com/hochfrequenz/loadspike/internal/planner"
)

// Executor runs a load plan to completion
type Executor interface {
	Execute(plan domain.LoadPlan) *domain.RunReport
}

// ReportStore persists finished runs
type ReportStore interface {
	SaveReport(report *domain.RunReport) error
}

// Options configures a Runner. Prober, Planner and Executor are required.
type Options struct {
	Prober   capacity.Prober
	Planner  *planner.Planner
	Random   planner.RandomSource
	Executor Executor

	Store         ReportStore
	Notifier      notify.Notifier
	Recorder      metrics.Recorder
	OnStateChange func(state domain.RunState)
}

// Preview is the outcome of a dry run
type Preview struct {
	Capacity domain.CapacitySnapshot `json:"capacity" yaml:"capacity"`
	Plan     domain.LoadPlan         `json:"plan" yaml:"plan"`
}

// Runner performs load spikes one at a time
type Runner struct {
	opts Options

	mu   sync.Mutex
	busy bool
}

// NewRunner creates a runner, filling optional collaborators with no-ops
func NewRunner(opts Options) (*Runner, error) {
	if opts.Prober == nil || opts.Planner == nil || opts.Executor == nil {
		return nil, errors.New("spike runner needs a prober, a planner and an executor")
	}
	if opts.Random == nil {
		opts.Random = planner.NewHostRandom()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NoopNotifier{}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Noop{}
	}
	return &Runner{opts: opts}, nil
}

// Busy reports whether a spike is currently running
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// PlanOnly probes the host and draws a plan without spawning any worker
func (r *Runner) PlanOnly(ctx context.Context) (*Preview, error) {
	snapshot, err := r.opts.Prober.Probe(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := r.opts.Planner.Plan(snapshot, r.opts.Random)
	if err != nil {
		return nil, err
	}

	return &Preview{Capacity: snapshot, Plan: plan}, nil
}

// RunLoadSpike performs one probe, plan and execute cycle and returns the
// report. Capacity errors abort the run before any worker is spawned. Once
// workers have run, persistence and notification failures are only logged.
//
// The context bounds probing only; a spawned run cannot be cancelled.
func (r *Runner) RunLoadSpike(ctx context.Context) (*domain.RunReport, error) {
	if !r.acquire() {
		return nil, domain.ErrRunInProgress
	}
	defer r.release()

	r.setState(domain.StatePlanning)

	preview, err := r.PlanOnly(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.WithError(err).Error("load spike aborted before spawning workers")
		r.opts.Recorder.RecordFailure()
		if nerr := r.opts.Notifier.Send(notify.FromError(err)); nerr != nil {
			log.WithError(nerr).Warn("sending failure notification")
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"cores":        preview.Capacity.LogicalCores,
		"total_memory": preview.Capacity.TotalMemoryBytes,
		"cpu_workers":  preview.Plan.CPUWorkerCount,
		"mem_workers":  preview.Plan.MemoryWorkerCount,
		"duration":     preview.Plan.RunDurationSeconds,
	}).Debug("load plan drawn")

	r.opts.Recorder.RecordPlan(preview.Plan)
	report := r.opts.Executor.Execute(preview.Plan)

	logger := log.WithField("run_id", report.ID)
	if r.opts.Store != nil {
		if err := r.opts.Store.SaveReport(report); err != nil {
			logger.WithError(err).Warn("saving run report")
		}
	}
	if err := r.opts.Notifier.Send(notify.FromReport(report)); err != nil {
		logger.WithError(err).Warn("sending completion notification")
	}
	r.opts.Recorder.RecordReport(report)

	return report, nil
}

func (r *Runner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy {
		return false
	}
	r.busy = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}

func (r *Runner) setState(state domain.RunState) {
	if r.opts.OnStateChange != nil {
		r.opts.OnStateChange(state)
	}
}
