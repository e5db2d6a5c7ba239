package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

const MetricPrefix = "loadspike_"

var runsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "runs_total",
		Help: "Number of load spike runs by result",
	},
	[]string{"result"},
)

var failedAllocationsCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: MetricPrefix + "failed_allocations_total",
		Help: "Number of memory hold workers that could not allocate their block",
	},
)

var abandonedWorkersCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "abandoned_workers_total",
		Help: "Number of workers still running when the coordinator stopped waiting",
	},
	[]string{"kind"},
)

var activeWorkersGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "active_workers",
		Help: "Number of load workers currently running",
	},
)

var plannedCPUWorkersGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "planned_cpu_workers",
		Help: "CPU workers planned for the most recent run",
	},
)

var plannedMemoryBytesGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "planned_memory_bytes",
		Help: "Memory target of the most recent run",
	},
)

var heldMemoryBytesGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "held_memory_bytes",
		Help: "Memory actually held by the most recent run",
	},
)

var plannedDurationGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "planned_duration_seconds",
		Help: "Hold duration of the most recent run",
	},
)

var runDurationHist = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    MetricPrefix + "run_wall_seconds",
		Help:    "Wall-clock time from spawn to report",
		Buckets: prometheus.LinearBuckets(300, 60, 12),
	},
)

// Recorder receives run lifecycle measurements
type Recorder interface {
	RecordPlan(plan domain.LoadPlan)
	RecordReport(report *domain.RunReport)
	RecordFailure()
	SetActiveWorkers(active int)
}

// Metrics records to the default prometheus registry
type Metrics struct{}

var m = &Metrics{}

// Get returns the process-wide recorder
func Get() *Metrics {
	return m
}

func (m *Metrics) RecordPlan(plan domain.LoadPlan) {
	plannedCPUWorkersGauge.Set(float64(plan.CPUWorkerCount))
	plannedMemoryBytesGauge.Set(float64(plan.MemoryTargetBytes))
	plannedDurationGauge.Set(float64(plan.RunDurationSeconds))
}

func (m *Metrics) RecordReport(report *domain.RunReport) {
	result := "completed"
	if !report.Completed {
		result = "incomplete"
	}
	runsCounter.WithLabelValues(result).Inc()
	failedAllocationsCounter.Add(float64(report.FailedAllocations))
	heldMemoryBytesGauge.Set(float64(report.MemoryAllocatedBytes))
	runDurationHist.Observe(report.Duration().Seconds())

	for _, w := range report.Workers {
		if w.Status == domain.WorkerAbandoned {
			abandonedWorkersCounter.WithLabelValues(string(w.Kind)).Inc()
		}
	}
}

// RecordFailure counts a run that aborted before spawning any worker
func (m *Metrics) RecordFailure() {
	runsCounter.WithLabelValues("failed").Inc()
}

func (m *Metrics) SetActiveWorkers(active int) {
	activeWorkersGauge.Set(float64(active))
}

// Noop discards all measurements
type Noop struct{}

func (Noop) RecordPlan(domain.LoadPlan)      {}
func (Noop) RecordReport(*domain.RunReport) {}
func (Noop) RecordFailure()                 {}
func (Noop) SetActiveWorkers(int)           {}
