// Package services defines shared utilities consumed by the pipeline stages
// and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and feed URLs for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can tell store
//     and configuration failures apart from transient ones.
package services
