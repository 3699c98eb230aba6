// Package integrity verifies recorded segments and repairs the ones whose
// container is damaged.
//
// Verification is a read-only ffprobe pass. Repair is a single stream-copy
// remux with regenerated timestamps; its output is only accepted if it passes
// verification itself.
package integrity
