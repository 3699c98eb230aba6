// Package services defines shared error markers and context helpers used by
// every pipeline stage.
//
// Context helpers stamp the run identifier, stage name, and current segment so
// log lines can be correlated across a run. The Wrap helper attaches stage and
// operation detail to an error while tagging it with one of the sentinel
// markers, which FailureKind later turns into a stable label.
package services
