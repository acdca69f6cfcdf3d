// Package pipeline turns subscriptions into downloaded, tagged episodes.
//
// A run has two stages that never overlap. The update stage fetches every
// feed with a bounded worker pool and selects entries missing from the
// per-feed history. The download stage flattens all selections into one
// pool, downloads and tags each episode, and only after every worker has
// returned records the successful ones in a single store write. Failures of
// one feed or one episode are logged and carried on the Episode value; they
// never abort the run. Only store failures are fatal.
package pipeline
