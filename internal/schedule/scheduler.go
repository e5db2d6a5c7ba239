// Package schedule fires load spikes on cron schedules.
package schedule

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

// DefaultTick is how often the scheduler checks for due entries
const DefaultTick = time.Minute

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// Scheduler manages recurring spike runs
type Scheduler struct {
	entries   map[string]SpikeEntry
	schedules map[string]cron.Schedule
	lastRun   map[string]time.Time
	running   map[string]bool
	tick      time.Duration
	now       func() time.Time
	mu        sync.RWMutex
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewScheduler creates a scheduler. Entries are due from their first cron
// slot after creation; missed slots before start are not caught up.
func NewScheduler(entries []SpikeEntry) (*Scheduler, error) {
	s := &Scheduler{
		lastRun:  make(map[string]time.Time),
		running:  make(map[string]bool),
		tick:     DefaultTick,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if err := s.Reload(entries); err != nil {
		return nil, err
	}
	return s, nil
}

// SetTick changes how often Start checks for due entries
func (s *Scheduler) SetTick(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = d
}

// Reload replaces the schedule. Entries keep their last run time when their
// name survives the reload.
func (s *Scheduler) Reload(entries []SpikeEntry) error {
	cfg := Config{Spikes: entries}
	if err := cfg.Validate(); err != nil {
		return err
	}

	schedules := make(map[string]cron.Schedule, len(entries))
	byName := make(map[string]SpikeEntry, len(entries))
	for _, e := range entries {
		sched, err := ParseCron(e.Cron)
		if err != nil {
			return err
		}
		schedules[e.Name] = sched
		byName[e.Name] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for name := range byName {
		if _, ok := s.lastRun[name]; !ok {
			s.lastRun[name] = now
		}
	}
	for name := range s.lastRun {
		if _, ok := byName[name]; !ok && !s.running[name] {
			delete(s.lastRun, name)
		}
	}
	s.entries = byName
	s.schedules = schedules
	return nil
}

// NextRun returns the next scheduled run time for an entry
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok || !e.IsEnabled() {
		return time.Time{}
	}
	return s.schedules[name].Next(s.now())
}

// ShouldRun returns true if an entry is due and not already running
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok || !e.IsEnabled() {
		return false
	}
	if s.running[name] {
		return false
	}

	next := s.schedules[name].Next(s.lastRun[name])
	return !s.now().Before(next)
}

// MarkRunning marks an entry as currently running
func (s *Scheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

// MarkComplete marks an entry as complete
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = s.now()
}

// ListEntries returns all entry names, sorted
func (s *Scheduler) ListEntries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetEntry returns the entry with the given name
func (s *Scheduler) GetEntry(name string) (SpikeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// Start runs the scheduler loop until Stop is called. Each due entry calls
// runFunc in its own goroutine; an entry never overlaps with itself.
func (s *Scheduler) Start(runFunc func(SpikeEntry) error) {
	s.mu.RLock()
	tick := s.tick
	s.mu.RUnlock()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.fireDue(runFunc)
		}
	}
}

func (s *Scheduler) fireDue(runFunc func(SpikeEntry) error) {
	for _, name := range s.ListEntries() {
		if !s.ShouldRun(name) {
			continue
		}
		e, ok := s.GetEntry(name)
		if !ok {
			continue
		}
		s.MarkRunning(name)
		go func(e SpikeEntry) {
			defer s.MarkComplete(e.Name)
			logger := log.WithField("schedule", e.Name)
			logger.Info("Scheduled load spike starting")
			err := runFunc(e)
			switch {
			case errors.Is(err, domain.ErrRunInProgress):
				logger.Warn("Skipping scheduled spike, another run is in progress")
			case err != nil:
				logger.WithError(err).Error("Scheduled spike failed")
			}
		}(e)
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
