package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"podd/internal/logging"
	"podd/internal/services"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll subscriptions periodically until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			every := interval
			if every <= 0 {
				every = cfg.WatchEvery()
			}
			if every <= 0 {
				return errors.New("watch interval must be positive")
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			defer ctx.close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Polling every %s; press Ctrl+C to stop\n", every)
			logger.Info("watch started",
				logging.Duration("interval", every),
				logging.String(logging.FieldEventType, "watch_started"),
			)

			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				if err := watchTick(signalCtx, ctx, cmd); err != nil {
					return err
				}
				select {
				case <-signalCtx.Done():
					logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stopped"))
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (defaults to download.watch_interval)")
	return cmd
}

// watchTick runs one download. Errors that a later tick could recover from
// are logged and swallowed.
func watchTick(runCtx context.Context, ctx *commandContext, cmd *cobra.Command) error {
	_, err := runDownload(runCtx, ctx, cmd.OutOrStdout())
	if err == nil || runCtx.Err() != nil {
		return nil
	}
	if !services.Retryable(err) {
		return err
	}
	logger, _ := ctx.ensureLogger()
	logging.WarnWithContext(logger, "download run failed; retrying next interval", "watch_run_failed",
		logging.Error(err),
		logging.Bool("locked", errors.Is(err, services.ErrLocked)),
		logging.String(logging.FieldImpact, "no episodes downloaded this interval"),
	)
	fmt.Fprintf(cmd.ErrOrStderr(), "Run failed: %v\n", err)
	return nil
}
