// Package store persists subscriptions and per-feed download history.
//
// SQLite (modernc.org/sqlite) is the default backend; PostgreSQL (lib/pq) is
// selected with store.driver = "postgres". Both share one schema, applied from
// embedded, versioned migrations. Queries are written with ? placeholders and
// rebound for the active dialect.
//
// The download pipeline depends only on podcast.Repository; the CLI uses the
// wider Store API to add, list, and remove feeds.
package store
