// Package podcast defines the value types shared by the feed, download, and
// reporting stages: subscriptions, normalized feed documents, episode
// candidates, and the per-podcast results handed to notifications.
//
// Types here are plain values. Workers copy an Episode, fill in its outcome,
// and return it; nothing in this package is safe for concurrent mutation and
// nothing needs to be.
//
// The typed errors (FetchError, DownloadError, TagError) classify per-item
// failures so callers can log and contain them without string matching.
package podcast
