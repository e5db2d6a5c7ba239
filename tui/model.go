package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/runstore"
	"github.com/hochfrequenz/loadspike/internal/telemetry"
)

const (
	TabHost = iota
	TabRuns
	tabCount
)

// Collector produces host telemetry snapshots
type Collector interface {
	Collect(ctx context.Context) (*telemetry.SystemInfo, error)
}

// RunLister lists recent runs
type RunLister interface {
	ListRuns(opts runstore.ListOptions) ([]*domain.RunReport, error)
}

// Model is the TUI application model
type Model struct {
	// Sources
	collector Collector
	runs      RunLister
	interval  time.Duration
	runLimit  int

	// Data
	info       *telemetry.SystemInfo
	recentRuns []*domain.RunReport
	err        error

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int

	// Refresh
	lastRefresh time.Time
	refreshing  bool
}

// ModelConfig holds the data sources for the TUI model
type ModelConfig struct {
	Collector Collector
	Runs      RunLister // optional
	Interval  time.Duration
	RunLimit  int
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.RunLimit <= 0 {
		cfg.RunLimit = 10
	}
	return Model{
		collector: cfg.Collector,
		runs:      cfg.Runs,
		interval:  cfg.Interval,
		runLimit:  cfg.RunLimit,
		activeTab: TabHost,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchCmd(),
		tickCmd(m.interval),
	)
}

// TickMsg triggers a refresh
type TickMsg time.Time

// SnapshotMsg carries freshly collected data
type SnapshotMsg struct {
	Info *telemetry.SystemInfo
	Runs []*domain.RunReport
	Err  error
	At   time.Time
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) fetchCmd() tea.Cmd {
	collector, runs, limit, interval := m.collector, m.runs, m.runLimit, m.interval
	return func() tea.Msg {
		msg := SnapshotMsg{At: time.Now()}
		if collector != nil {
			ctx, cancel := context.WithTimeout(context.Background(), interval+5*time.Second)
			defer cancel()
			msg.Info, msg.Err = collector.Collect(ctx)
		}
		if runs != nil && msg.Err == nil {
			msg.Runs, msg.Err = runs.ListRuns(runstore.ListOptions{Limit: limit})
		}
		return msg
	}
}
