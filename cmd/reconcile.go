package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sayan2713/QR-Generator-Verify-System/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Retry registry rows that have not reached the audit table",
	RunE:  runReconcile,
}

var reconcileOnce bool

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileOnce, "once", false, "run a single pass and exit")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	r := a.reconciler()
	if !reconcileOnce {
		return r.Start(ctx, cfg.Reconcile.Interval)
	}

	res, err := r.RunOnce(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("synced", res.Synced).Int("failed", res.Failed).Int64("pending", res.Pending).Msg("reconcile pass done")
	return nil
}
