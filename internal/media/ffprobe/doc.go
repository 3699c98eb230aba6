// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: the seam stages depend on; CLI is the ffprobe-backed implementation
//
// Helper methods on Result report readability, duration, frame rate, and
// frame count.
package ffprobe
