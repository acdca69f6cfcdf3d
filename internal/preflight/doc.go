// Package preflight provides readiness checks for the filesystem paths,
// database, and notification endpoint podd depends on.
//
// These checks run in two contexts:
//   - A download run calls CheckDirectories before polling feeds, so a missing
//     or read-only download root fails fast instead of once per episode.
//   - The CLI "podd check" command runs RunAll and prints every result.
//
// Notification checks are gated by notifications.enabled.
package preflight
