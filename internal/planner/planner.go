// Package planner turns a host capacity snapshot into a randomized load plan.
package planner

import (
	"fmt"
	"math"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

// Policy bounds the randomized targets
type Policy struct {
	MinIntensity       float64
	MaxIntensity       float64
	MinDurationSecs    int
	MaxDurationSecs    int
	MinMemoryPerWorker uint64
	MaxMemoryWorkers   int
}

// DefaultPolicy returns the standard 30-50% / 5-15 minute policy
func DefaultPolicy() Policy {
	return Policy{
		MinIntensity:       0.30,
		MaxIntensity:       0.50,
		MinDurationSecs:    300,
		MaxDurationSecs:    900,
		MinMemoryPerWorker: 100 * domain.MiB,
		MaxMemoryWorkers:   4,
	}
}

// Validate checks the policy bounds are usable
func (p Policy) Validate() error {
	if p.MinIntensity <= 0 || p.MaxIntensity > 1 || p.MinIntensity > p.MaxIntensity {
		return fmt.Errorf("intensity range [%.2f, %.2f] must lie within (0, 1]", p.MinIntensity, p.MaxIntensity)
	}
	if p.MinDurationSecs <= 0 || p.MinDurationSecs > p.MaxDurationSecs {
		return fmt.Errorf("duration range [%d, %d] is invalid", p.MinDurationSecs, p.MaxDurationSecs)
	}
	if p.MinMemoryPerWorker == 0 {
		return fmt.Errorf("minimum memory per worker must be positive")
	}
	if p.MaxMemoryWorkers < 1 {
		return fmt.Errorf("max memory workers must be at least 1, got %d", p.MaxMemoryWorkers)
	}
	return nil
}

// Planner computes load plans under a fixed policy
type Planner struct {
	policy Policy
}

// New creates a planner. The policy is validated up front.
func New(policy Policy) (*Planner, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Planner{policy: policy}, nil
}

// Policy returns the planner's bounds
func (p *Planner) Policy() Policy {
	return p.policy
}

// Plan computes a load plan using the default policy
func Plan(snapshot domain.CapacitySnapshot, rng RandomSource) (domain.LoadPlan, error) {
	return (&Planner{policy: DefaultPolicy()}).Plan(snapshot, rng)
}

// Plan computes how many workers to run, how much memory to hold, and for how long.
// The snapshot is validated before any value is drawn from rng.
func (p *Planner) Plan(snapshot domain.CapacitySnapshot, rng RandomSource) (domain.LoadPlan, error) {
	if err := snapshot.Validate(); err != nil {
		return domain.LoadPlan{}, err
	}

	cpuIntensity := p.intensity(rng)
	ramIntensity := p.intensity(rng)

	cpuWorkers := int(math.Floor(float64(snapshot.LogicalCores) * cpuIntensity))
	if cpuWorkers < 1 {
		cpuWorkers = 1
	}
	if cpuWorkers > snapshot.LogicalCores {
		cpuWorkers = snapshot.LogicalCores
	}

	target := uint64(math.Floor(float64(snapshot.TotalMemoryBytes) * ramIntensity))

	perWorker := target / uint64(p.policy.MaxMemoryWorkers)
	if perWorker < p.policy.MinMemoryPerWorker {
		perWorker = p.policy.MinMemoryPerWorker
	}

	memWorkers := int(target / perWorker)
	if memWorkers < 1 {
		memWorkers = 1
	}
	if memWorkers > p.policy.MaxMemoryWorkers {
		memWorkers = p.policy.MaxMemoryWorkers
	}

	span := p.policy.MaxDurationSecs - p.policy.MinDurationSecs + 1
	duration := p.policy.MinDurationSecs + rng.Intn(span)

	return domain.LoadPlan{
		CPUWorkerCount:       cpuWorkers,
		CPUIntensity:         cpuIntensity,
		RAMIntensity:         ramIntensity,
		MemoryTargetBytes:    target,
		MemoryWorkerCount:    memWorkers,
		MemoryPerWorkerBytes: perWorker,
		RunDurationSeconds:   duration,
	}, nil
}

func (p *Planner) intensity(rng RandomSource) float64 {
	v := p.policy.MinIntensity + rng.Float64()*(p.policy.MaxIntensity-p.policy.MinIntensity)
	// Float64 is half-open, but a custom source may return 1.0
	if v > p.policy.MaxIntensity {
		v = p.policy.MaxIntensity
	}
	return v
}
