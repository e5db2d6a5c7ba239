package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/hochfrequenz/loadspike/internal/capacity"
	"github.com/hochfrequenz/loadspike/internal/config"
	"github.com/hochfrequenz/loadspike/internal/coordinator"
	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/logging"
	"github.com/hochfrequenz/loadspike/internal/metrics"
	"github.com/hochfrequenz/loadspike/internal/notify"
	"github.com/hochfrequenz/loadspike/internal/planner"
	"github.com/hochfrequenz/loadspike/internal/runstore"
	"github.com/hochfrequenz/loadspike/internal/spike"
	"github.com/hochfrequenz/loadspike/internal/worker"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithLocalFallback(configPath)
	if err != nil {
		return nil, err
	}
	if err := logging.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*runstore.Store, error) {
	path := cfg.General.DatabasePath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	store, err := runstore.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newRunner wires the spike pipeline from configuration. store may be nil, in
// which case runs are not recorded.
func newRunner(cfg *config.Config, store spike.ReportStore, onState func(domain.RunState)) (*spike.Runner, error) {
	p, err := planner.New(cfg.Spike.Policy())
	if err != nil {
		return nil, err
	}

	recorder := metrics.Get()
	coord := coordinator.NewCoordinator(coordinator.CoordinatorConfig{
		JoinGrace:        cfg.Spike.JoinGrace(),
		Allocator:        worker.NewHeapAllocator(cfg.Spike.MemoryCeilingPercent),
		OnStateChange:    onState,
		OnWorkersChanged: recorder.SetActiveWorkers,
	})

	opts := spike.Options{
		Prober:        capacity.NewHostProber(),
		Planner:       p,
		Random:        planner.NewHostRandom(),
		Executor:      coord,
		Notifier:      notify.New(cfg.Notifications.Desktop, cfg.Notifications.SlackWebhook),
		Recorder:      recorder,
		OnStateChange: onState,
	}
	if store != nil {
		opts.Store = store
	}
	return spike.NewRunner(opts)
}

func logState(state domain.RunState) {
	log.WithField("state", state).Info("Run state changed")
}
