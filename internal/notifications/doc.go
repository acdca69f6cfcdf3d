// Package notifications delivers the per-run download report.
//
// The report is rendered once from embedded HTML and plain-text templates and
// handed to the transport selected in config.toml: SMTP through go-mail,
// Amazon SES, or an ntfy topic. When notifications are disabled NewService
// returns a no-op implementation so callers never need to check.
//
// Only podcasts with at least one downloaded episode appear in a report, and
// an empty result set sends nothing.
package notifications
