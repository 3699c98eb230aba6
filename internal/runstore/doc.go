// Package runstore records pipeline run history in SQLite.
//
// Each run is inserted when it starts and updated with its terminal state,
// counts, and failure text when it ends. The status command and the daemon's
// Status report read from here.
package runstore
