package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podd/internal/config"
	"podd/internal/episode"
	"podd/internal/feed"
	"podd/internal/podcast"
	"podd/internal/store"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		filePath string
		name     string
		catalog  string
	)

	cmd := &cobra.Command{
		Use:   "add [URL...]",
		Short: "Subscribe to one or more feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := append([]string(nil), args...)
			if filePath != "" {
				fromFile, err := readFeedList(filePath)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if len(urls) == 0 {
				return errors.New("provide at least one feed URL or --file")
			}
			if name != "" && len(urls) > 1 {
				return errors.New("--name can only be used with a single feed")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalogAll := cfg.CatalogAll()
			switch catalog {
			case "":
			case config.CatalogAll:
				catalogAll = true
			case config.CatalogNew:
				catalogAll = false
			default:
				return fmt.Errorf("--catalog must be %q or %q", config.CatalogNew, config.CatalogAll)
			}

			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer ctx.close()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			fetcher := feed.NewFetcher(feed.Options{
				Timeout:   cfg.FetchTimeout(),
				UserAgent: cfg.Download.UserAgent,
				Logger:    logger,
			})

			out := cmd.OutOrStdout()
			failed := 0
			for _, u := range urls {
				if err := addFeed(cmd.Context(), cfg, st, fetcher, out, u, name, catalogAll); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", u, err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d feeds could not be added", failed, len(urls))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Read feed URLs from a file, one per line")
	cmd.Flags().StringVar(&name, "name", "", "Override the podcast name (single feed only)")
	cmd.Flags().StringVar(&catalog, "catalog", "", "Override download.catalog for these feeds (new|all)")
	return cmd
}

func addFeed(ctx context.Context, cfg *config.Config, st *store.Store, source feed.Source, out io.Writer, feedURL, name string, catalogAll bool) error {
	feedURL = strings.TrimSpace(feedURL)
	existing, err := st.Subscription(ctx, feedURL)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: already subscribed as %q", store.ErrDuplicateSubscription, existing.Name)
	}

	doc, err := source.Fetch(ctx, feedURL)
	if err != nil {
		return err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = strings.TrimSpace(doc.Name)
	}
	if name == "" {
		name = feedURL
	}

	dir := filepath.Join(cfg.Paths.DownloadDir, episode.SanitizeTitle(name))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create podcast directory: %w", err)
	}
	sub := podcast.Subscription{Name: name, FeedURL: feedURL, Directory: dir}

	if catalogAll {
		if err := st.AddSubscription(ctx, sub); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added %s (%d episodes queued for download)\n", name, len(doc.Entries))
		return nil
	}
	catalog := make([]string, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		catalog = append(catalog, entry.ID)
	}
	if err := st.Subscribe(ctx, sub, catalog); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %s (%d existing episodes skipped)\n", name, len(catalog))
	return nil
}

// readFeedList reads one URL per line, ignoring blanks and # comments.
func readFeedList(path string) ([]string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("open feed list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feed list: %w", err)
	}
	return urls, nil
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove URL...",
		Aliases: []string{"rm"},
		Short:   "Unsubscribe from feeds and forget their download history",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer ctx.close()
			out := cmd.OutOrStdout()
			missing := 0
			for _, u := range args {
				removed, err := st.RemoveSubscription(cmd.Context(), strings.TrimSpace(u))
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(out, "Not subscribed: %s\n", u)
					missing++
					continue
				}
				fmt.Fprintf(out, "Removed %s\n", u)
			}
			if missing == len(args) {
				return errors.New("no subscriptions removed")
			}
			return nil
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer ctx.close()
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stats) == 0 {
				fmt.Fprintln(out, "No subscriptions")
				return nil
			}
			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				last := "never"
				if s.LastDownload != nil {
					last = s.LastDownload.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{s.Name, strconv.Itoa(s.Episodes), last, s.FeedURL})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Podcast", "Episodes", "Last Download", "Feed"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
