// Package main hosts the podd CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, opens the subscription
// store on demand, and hands the heavy lifting to internal/pipeline. Commands
// cover single download runs, a polling loop, subscription maintenance,
// configuration scaffolding, and a notification smoke test.
package main
