// Package ffmpeg runs external media tools with a graceful-then-forced
// termination contract and surfaces their stderr tail as a diagnostic payload.
package ffmpeg
