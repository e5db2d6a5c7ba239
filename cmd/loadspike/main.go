package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hochfrequenz/loadspike/internal/logging"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "loadspike",
		Short: "loadspike - synthetic CPU and memory load generator",
		Long: `loadspike probes the host's CPU and memory capacity, draws a randomized
load plan of 30-50% of that capacity for 5-15 minutes, and runs it with CPU
burn and memory hold workers. Runs are recorded and can be triggered on a
cron schedule; a read-only dashboard shows live host telemetry.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	logging.ConfigureCliLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	releaseOnDone(ctx, stop)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// releaseOnDone calls stop once ctx is done, restoring default signal
// handling so a second interrupt terminates the process even while
// uncancellable workers are running.
func releaseOnDone(ctx context.Context, stop context.CancelFunc) {
	go func() {
		<-ctx.Done()
		stop()
	}()
}
