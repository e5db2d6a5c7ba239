package planner

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

// RandomSource supplies uniform draws to the planner
type RandomSource interface {
	// Float64 returns a value in [0.0, 1.0)
	Float64() float64
	// Intn returns a value in [0, n)
	Intn(n int) int
}

// NewHostRandom returns a generator seeded from the host clock
func NewHostRandom() RandomSource {
	return &lockedRand{r: rand.New(rand.NewSource(uint64(time.Now().UnixNano())))}
}

// NewSeededRandom returns a deterministic generator for a fixed seed
func NewSeededRandom(seed uint64) RandomSource {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// lockedRand serialises access; the scheduler and manual runs share one source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// SequenceRandom replays fixed values, cycling when exhausted.
// Ints are reduced modulo n.
type SequenceRandom struct {
	Floats []float64
	Ints   []int

	fi, ii int
}

// Float64 returns the next float in the sequence
func (s *SequenceRandom) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fi%len(s.Floats)]
	s.fi++
	return v
}

// Intn returns the next int in the sequence, reduced into [0, n)
func (s *SequenceRandom) Intn(n int) int {
	if len(s.Ints) == 0 || n <= 0 {
		return 0
	}
	v := s.Ints[s.ii%len(s.Ints)] % n
	s.ii++
	if v < 0 {
		v += n
	}
	return v
}
