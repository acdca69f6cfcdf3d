package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"podd/internal/config"
	"podd/internal/download"
	"podd/internal/feed"
	"podd/internal/logging"
	"podd/internal/notifications"
	"podd/internal/pipeline"
	"podd/internal/podcast"
	"podd/internal/preflight"
	"podd/internal/runlock"
	"podd/internal/services"
	"podd/internal/tagging"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "download",
		Aliases: []string{"dl"},
		Short:   "Download new episodes from every subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			defer ctx.close()
			_, err := runDownload(signalCtx, ctx, cmd.OutOrStdout())
			return err
		},
	}
}

// runDownload performs one locked download run, prints its outcome, and sends
// the report when notifications are enabled.
func runDownload(runCtx context.Context, ctx *commandContext, out io.Writer) (pipeline.Report, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return pipeline.Report{}, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return pipeline.Report{}, err
	}

	if failed := preflight.Failed(preflight.CheckDirectories(cfg)); len(failed) > 0 {
		return pipeline.Report{}, services.Wrap(services.ErrConfiguration, "", "preflight",
			fmt.Sprintf("%s: %s", failed[0].Name, failed[0].Detail), nil)
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return pipeline.Report{}, err
	}
	defer lock.Release()

	st, err := ctx.openStore()
	if err != nil {
		return pipeline.Report{}, services.Wrap(services.ErrStore, "", "open store", "", err)
	}

	runner, err := newRunner(cfg, st, logger, newConsoleObserver(out))
	if err != nil {
		return pipeline.Report{}, services.Wrap(services.ErrConfiguration, "", "build pipeline", "", err)
	}

	report, err := runner.ExecuteReport(runCtx)
	if err != nil {
		return report, err
	}
	printReport(out, report)

	if len(report.Results) > 0 {
		notifyReport(runCtx, cfg, logger, out, report)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "*.log*",
		filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	return report, nil
}

func newRunner(cfg *config.Config, repo podcast.Repository, logger *slog.Logger, observer pipeline.Observer) (*pipeline.Runner, error) {
	return pipeline.New(pipeline.Options{
		Repository: repo,
		Source: feed.NewFetcher(feed.Options{
			Timeout:   cfg.FetchTimeout(),
			UserAgent: cfg.Download.UserAgent,
			Logger:    logger,
		}),
		Downloader: download.New(download.Options{
			Timeout:   cfg.TransferTimeout(),
			UserAgent: cfg.Download.UserAgent,
			Logger:    logger,
		}),
		Tagger:          tagging.New(logger),
		FetchWorkers:    cfg.Download.FetchWorkers,
		DownloadWorkers: cfg.Download.DownloadWorkers,
		Logger:          logger,
		Observer:        observer,
	})
}

func printReport(out io.Writer, report pipeline.Report) {
	if len(report.Results) == 0 && len(report.Failed) == 0 {
		fmt.Fprintln(out, "No new episodes")
		return
	}
	colorize := shouldColorize(out)
	for _, res := range report.Results {
		for _, ep := range res.Episodes {
			fmt.Fprintln(out, paint(ansiGreen, fmt.Sprintf("Downloaded %s - %s", res.Name, ep.Title), colorize))
		}
	}
	fmt.Fprintf(out, "%d downloaded, %d failed\n", report.Downloaded(), len(report.Failed))
}

func notifyReport(runCtx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, report pipeline.Report) {
	notifier, err := notifications.NewService(cfg)
	if err == nil {
		err = notifier.NotifyReport(runCtx, report.Results)
	}
	if err == nil {
		return
	}
	logging.WarnWithContext(logger, "download report not sent", "notification_failed",
		logging.Error(err),
		logging.String("transport", cfg.Notifications.Transport),
		logging.String(logging.FieldErrorHint, "run `podd notify test` to check notification settings"),
		logging.String(logging.FieldImpact, "episodes were downloaded but no report was delivered"),
	)
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(out, "Report not sent: %v\n", err)
	}
}
