package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"podd/internal/config"
	"podd/internal/podcast"
)

// ErrDuplicateSubscription is returned when a feed URL is already subscribed.
var ErrDuplicateSubscription = errors.New("subscription already exists")

// Store manages subscription persistence.
type Store struct {
	db      *sql.DB
	dialect dialect
}

var _ podcast.Repository = (*Store)(nil)

// SubscriptionStats summarizes a subscription's download history.
type SubscriptionStats struct {
	podcast.Subscription
	Episodes     int
	LastDownload *time.Time
	CreatedAt    time.Time
}

// Open connects to the configured database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return OpenDSN(context.Background(), config.DriverPostgres, cfg.Store.DSN)
	default:
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenDSN(context.Background(), config.DriverSQLite, cfg.DatabasePath())
	}
}

// OpenDSN opens a store for an explicit driver and data source. For sqlite the
// data source is a file path.
func OpenDSN(ctx context.Context, driver, dsn string) (*Store, error) {
	d := dialect(driver)
	source := dsn
	switch d {
	case dialectSQLite:
		source = sqliteSource(dsn)
	case dialectPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres dsn is empty")
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(d.driverName(), source)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s db: %w", driver, err)
	}

	s := &Store{db: db, dialect: d}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// sqliteSource applies pragmas through the DSN so every pooled connection
// gets them, not only the first.
func sqliteSource(path string) string {
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + params.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver reports the active backend.
func (s *Store) Driver() string {
	return string(s.dialect)
}

// ListSubscriptions returns every subscription ordered by name.
func (s *Store) ListSubscriptions(ctx context.Context) ([]podcast.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, url, directory FROM podcasts ORDER BY name, url`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []podcast.Subscription
	for rows.Next() {
		var sub podcast.Subscription
		if err := rows.Scan(&sub.Name, &sub.FeedURL, &sub.Directory); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

// Subscription looks up one feed. It returns nil when the URL is unknown.
func (s *Store) Subscription(ctx context.Context, feedURL string) (*podcast.Subscription, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT name, url, directory FROM podcasts WHERE url = ?`), feedURL)
	var sub podcast.Subscription
	err := row.Scan(&sub.Name, &sub.FeedURL, &sub.Directory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

// AddSubscription inserts a feed. A URL that is already present yields
// ErrDuplicateSubscription.
func (s *Store) AddSubscription(ctx context.Context, sub podcast.Subscription) error {
	return s.Subscribe(ctx, sub, nil)
}

// Subscribe inserts a feed and marks catalog as already downloaded for it in
// one transaction, so a failure leaves neither behind. A URL that is already
// present yields ErrDuplicateSubscription.
func (s *Store) Subscribe(ctx context.Context, sub podcast.Subscription, catalog []string) error {
	if strings.TrimSpace(sub.FeedURL) == "" {
		return errors.New("subscription url is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subscribe tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO podcasts (name, url, directory, created_at) VALUES (?, ?, ?, ?)`),
		sub.Name, sub.FeedURL, sub.Directory, formatTime(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateSubscription, sub.FeedURL)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	refs := make([]podcast.EpisodeRef, 0, len(catalog))
	for _, id := range catalog {
		refs = append(refs, podcast.EpisodeRef{FeedURL: sub.FeedURL, EpisodeID: id})
	}
	if err := s.recordTx(ctx, tx, refs); err != nil {
		return fmt.Errorf("catalog existing episodes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subscribe tx: %w", err)
	}
	return nil
}

// RemoveSubscription deletes a feed and, through the foreign key, its
// download history. It reports whether a row was removed.
func (s *Store) RemoveSubscription(ctx context.Context, feedURL string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM podcasts WHERE url = ?`), feedURL)
	if err != nil {
		return false, fmt.Errorf("remove subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SeenEpisodes returns the entry IDs already downloaded for feedURL.
func (s *Store) SeenEpisodes(ctx context.Context, feedURL string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT e.feed_id FROM episodes e JOIN podcasts p ON p.id = e.podcast_id WHERE p.url = ?`), feedURL)
	if err != nil {
		return nil, fmt.Errorf("seen episodes: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan episode id: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}
	return seen, nil
}

const insertEpisode = `INSERT INTO episodes (feed_id, podcast_id, downloaded_at)
SELECT ?, id, ? FROM podcasts WHERE url = ?
ON CONFLICT (podcast_id, feed_id) DO NOTHING`

// RecordEpisode marks one entry as downloaded. Recording an entry twice, or
// for a feed that has since been removed, is not an error.
func (s *Store) RecordEpisode(ctx context.Context, feedURL, episodeID string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(insertEpisode), episodeID, formatTime(time.Now()), feedURL)
	if err != nil {
		return fmt.Errorf("record episode: %w", err)
	}
	return nil
}

// RecordEpisodes marks a batch of entries as downloaded in one transaction.
func (s *Store) RecordEpisodes(ctx context.Context, refs []podcast.EpisodeRef) error {
	if len(refs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.recordTx(ctx, tx, refs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}
	return nil
}

func (s *Store) recordTx(ctx context.Context, tx *sql.Tx, refs []podcast.EpisodeRef) error {
	if len(refs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(insertEpisode))
	if err != nil {
		return fmt.Errorf("prepare record: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, ref := range refs {
		if _, err := stmt.ExecContext(ctx, ref.EpisodeID, now, ref.FeedURL); err != nil {
			return fmt.Errorf("record episode %s: %w", ref.EpisodeID, err)
		}
	}
	return nil
}

// Stats returns per-subscription download counts ordered by name.
func (s *Store) Stats(ctx context.Context) ([]SubscriptionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT p.name, p.url, p.directory, p.created_at, COUNT(e.id), MAX(e.downloaded_at)
FROM podcasts p
LEFT JOIN episodes e ON e.podcast_id = p.id
GROUP BY p.id, p.name, p.url, p.directory, p.created_at
ORDER BY p.name, p.url`)
	if err != nil {
		return nil, fmt.Errorf("subscription stats: %w", err)
	}
	defer rows.Close()

	var out []SubscriptionStats
	for rows.Next() {
		var (
			st      SubscriptionStats
			created string
			last    sql.NullString
		)
		if err := rows.Scan(&st.Name, &st.FeedURL, &st.Directory, &created, &st.Episodes, &last); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		if ts, err := parseTime(created); err == nil {
			st.CreatedAt = ts
		}
		if last.Valid {
			if ts, err := parseTime(last.String); err == nil {
				st.LastDownload = &ts
			}
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}
