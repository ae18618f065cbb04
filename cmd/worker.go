package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers such as the reconciliation sweep`,
}

var sweepWorkerCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Repair one-sided transaction links periodically",
	Long:  `Run the reconciliation sweep on a ticker, or once with --once`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startSweepWorker()
	},
}

var (
	sweepInterval time.Duration
	sweepOwner    int64
	sweepOnce     bool
)

func startSweepWorker() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()
	lg := deps.Logger

	interval := sweepInterval
	if interval <= 0 {
		interval = deps.Config.Reconciliation.SweepInterval
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	sweep := func() {
		res, err := deps.Reconciliation.Sweep(ctx, sweepOwner)
		if err != nil {
			lg.Error("sweep failed", "error", err, "owner_id", sweepOwner)
			return
		}
		lg.Info("sweep finished",
			"owner_id", sweepOwner,
			"links_cleared", res.LinksCleared,
			"back_refs_restored", res.BackRefsRestored,
			"expenses_cleared", res.ExpensesCleared)
	}

	sweep()
	if sweepOnce {
		return nil
	}

	lg.Info("sweep worker is running. Press Ctrl+C to stop.", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			lg.Info("shutting down sweep worker")
			return nil
		}
	}
}

func init() {
	sweepWorkerCmd.Flags().DurationVar(&sweepInterval, "interval", 0, "sweep interval (overrides config)")
	sweepWorkerCmd.Flags().Int64Var(&sweepOwner, "owner", 0, "limit the sweep to one owner")
	sweepWorkerCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single sweep and exit")

	workerCmd.AddCommand(sweepWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
