// Package pipeline coordinates one watcher run: verify and repair segments,
// merge them, compress the result under the delivery budget, upload it, then
// sweep the delivered video for people before deleting everything the upload
// made redundant.
//
// Any failure after verification leaves every segment and artifact on disk so
// the next scheduled run retries against the same files. Runs are serialized
// with an flock on work_dir/watcher.lock.
package pipeline
