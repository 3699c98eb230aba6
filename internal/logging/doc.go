// Package logging assembles structured slog loggers used across Watcher.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with the run identifier, stage, and
// segment. Warnings and errors go through WarnWithContext and ErrorWithContext
// so every line carries an event type and an operator hint.
package logging
