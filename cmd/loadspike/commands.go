package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/loadspike/internal/capacity"
	"github.com/hochfrequenz/loadspike/internal/config"
	"github.com/hochfrequenz/loadspike/internal/domain"
	"github.com/hochfrequenz/loadspike/internal/runstore"
	"github.com/hochfrequenz/loadspike/internal/schedule"
	"github.com/hochfrequenz/loadspike/internal/spike"
	"github.com/hochfrequenz/loadspike/internal/telemetry"
	"github.com/hochfrequenz/loadspike/tui"
	"github.com/hochfrequenz/loadspike/web/api"
)

var (
	outputFormat     string
	historyLimit     int
	historyCompleted bool
	servePort        int
	serveSchedule    bool
	scheduleList     bool
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one load spike now",
		RunE:  runRun,
	}
	runCmd.Flags().StringVarP(&outputFormat, "output", "o", outputText, "report format: text, json or yaml")
	rootCmd.AddCommand(runCmd)

	// plan command
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Probe the host and show a load plan without running it",
		RunE:  runPlan,
	}
	planCmd.Flags().StringVarP(&outputFormat, "output", "o", outputText, "output format: text, json or yaml")
	rootCmd.AddCommand(planCmd)

	// probe command
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Show the host capacity used for planning",
		RunE:  runProbe,
	}
	probeCmd.Flags().StringVarP(&outputFormat, "output", "o", outputText, "output format: text, json or yaml")
	rootCmd.AddCommand(probeCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyCompleted, "completed", false, "only show completed runs")
	rootCmd.AddCommand(historyCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only dashboard",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "also run the recurring spike schedule")
	rootCmd.AddCommand(serveCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run load spikes on the configured cron schedule",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().BoolVar(&scheduleList, "list", false, "list entries and their next run, then exit")
	rootCmd.AddCommand(scheduleCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Live terminal view of host load and recent runs",
		RunE:  runWatch,
	}
	rootCmd.AddCommand(watchCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := validateOutput(outputFormat); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var reportStore spike.ReportStore
	store, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Warn("run history unavailable, this run will not be recorded")
	} else {
		defer store.Close()
		reportStore = store
	}

	runner, err := newRunner(cfg, reportStore, logState)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	finished := make(chan struct{})
	defer close(finished)
	go warnOnInterrupt(ctx, finished)

	report, err := runner.RunLoadSpike(ctx)
	if err != nil {
		return err
	}
	return finishRun(ctx, cmd.OutOrStdout(), outputFormat, report)
}

func warnOnInterrupt(ctx context.Context, finished <-chan struct{}) {
	select {
	case <-ctx.Done():
		log.Warn("interrupted: workers cannot be cancelled and will run to their deadline, interrupt again to exit now")
	case <-finished:
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := validateOutput(outputFormat); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner, err := newRunner(cfg, nil, nil)
	if err != nil {
		return err
	}

	preview, err := runner.PlanOnly(cmd.Context())
	if err != nil {
		return err
	}
	return writePreview(cmd.OutOrStdout(), outputFormat, preview)
}

func runProbe(cmd *cobra.Command, args []string) error {
	if err := validateOutput(outputFormat); err != nil {
		return err
	}
	if _, err := loadConfig(); err != nil {
		return err
	}

	snapshot, err := capacity.NewHostProber().Probe(cmd.Context())
	if err != nil {
		return err
	}
	return writeCapacity(cmd.OutOrStdout(), outputFormat, snapshot)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(runstore.ListOptions{Limit: historyLimit, CompletedOnly: historyCompleted})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tCPU\tMEMORY HELD/PLANNED\tDURATION\tFAILED\tABANDONED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s/%s\t%s\t%d\t%d\n",
			r.ID,
			humanize.Time(r.StartedAt),
			r.CPUWorkerCount,
			humanize.IBytes(r.MemoryAllocatedBytes),
			humanize.IBytes(r.MemoryTargetBytes),
			(time.Duration(r.RunDurationSeconds) * time.Second).String(),
			r.FailedAllocations,
			r.AbandonedWorkers)
	}
	w.Flush()

	st, err := store.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d runs recorded | %d completed | %d failed allocations | %d abandoned workers\n",
		st.Runs, st.Completed, st.FailedAllocations, st.AbandonedWorkers)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Web.Port = servePort
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	server := api.NewServer(store, telemetry.NewCollector(), cfg.Web.Addr(), cfg.Web.TelemetryInterval())

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Start(ctx)
	})

	if serveSchedule {
		onState := func(state domain.RunState) {
			logState(state)
			server.PublishState(state)
		}
		runner, err := newRunner(cfg, store, onState)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return runScheduler(ctx, cfg, runner)
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Starting dashboard at http://%s\n", cfg.Web.Addr())
	return g.Wait()
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if scheduleList {
		return listSchedule(cmd, cfg)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := newRunner(cfg, store, logState)
	if err != nil {
		return err
	}
	return runScheduler(cmd.Context(), cfg, runner)
}

// runScheduler fires scheduled spikes until ctx is done, reloading the
// schedule file whenever it changes.
func runScheduler(ctx context.Context, cfg *config.Config, runner *spike.Runner) error {
	sc, err := schedule.LoadConfig(cfg.Schedule.File)
	if err != nil {
		return err
	}

	sched, err := schedule.NewScheduler(sc.Spikes)
	if err != nil {
		return err
	}

	watcher, err := schedule.NewWatcher(cfg.Schedule.File, func(updated *schedule.Config) {
		if err := sched.Reload(updated.Spikes); err != nil {
			log.WithError(err).Warn("schedule reload rejected")
		}
	})
	if err != nil {
		log.WithError(err).Warn("cannot watch schedule file, changes need a restart")
	} else {
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	for _, name := range sched.ListEntries() {
		log.WithField("schedule", name).Infof("Next run %s", sched.NextRun(name).Format(time.RFC3339))
	}

	go func() {
		<-ctx.Done()
		sched.Stop()
	}()

	sched.Start(func(e schedule.SpikeEntry) error {
		_, err := runner.RunLoadSpike(ctx)
		return err
	})
	return nil
}

func listSchedule(cmd *cobra.Command, cfg *config.Config) error {
	sc, err := schedule.LoadConfig(cfg.Schedule.File)
	if err != nil {
		return err
	}
	sched, err := schedule.NewScheduler(sc.Spikes)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCRON\tENABLED\tNEXT RUN")
	for _, name := range sched.ListEntries() {
		e, _ := sched.GetEntry(name)
		next := "-"
		if t := sched.NextRun(name); !t.IsZero() {
			next = t.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", e.Name, e.Cron, e.IsEnabled(), next)
	}
	return w.Flush()
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	modelCfg := tui.ModelConfig{
		Collector: telemetry.NewCollector(),
		Interval:  time.Second,
	}
	store, err := openStore(cfg)
	if err != nil {
		log.WithError(err).Warn("run history unavailable")
	} else {
		defer store.Close()
		modelCfg.Runs = store
	}

	// keep log lines from tearing the alt screen
	log.SetOutput(os.Stderr)
	log.SetLevel(log.ErrorLevel)

	p := tea.NewProgram(tui.NewModel(modelCfg), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
		return nil
	}
	return err
}
