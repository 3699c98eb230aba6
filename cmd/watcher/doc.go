// Package main hosts the watcher CLI entrypoint and command graph.
//
// `watcher run` performs one pipeline pass and exits non-zero only when the
// run aborted with its inputs preserved. `watcher daemon` repeats that pass on
// an interval. The remaining commands inspect run history, clean or resend
// detection screenshots, check the environment, and scaffold configuration.
//
// Keep this package lean: wiring lives in wire.go, behaviour in internal/.
package main
