// Package daemon runs the pipeline on a fixed interval for the long-running
// watcher process.
//
// A daemon-level flock in log_dir prevents two schedulers from running at
// once; each scheduled pass still takes the pipeline's own run lock, so a
// manual `watcher run` and the daemon never overlap either. Keep stage logic
// in the pipeline package; the daemon only owns startup, shutdown, and the
// ticker.
package daemon
