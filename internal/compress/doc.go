// Package compress owns the fixed re-encode profiles and the compression
// ladder that tries to bring a merged artifact under the delivery budget.
//
// The ladder makes one first pass (light for inputs that already fit,
// aggressive otherwise) and at most one extra pass with a 20% downscale. It
// never fails a run for being over budget; the delivery client enforces the
// hard limit with the emergency profile.
package compress
