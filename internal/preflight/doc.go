// Package preflight provides readiness checks for the filesystem and the
// external tools Watcher depends on.
//
// These checks run in two contexts:
//   - The pipeline calls CheckFreeSpace before each run and notifies the
//     operator when the segments filesystem is nearly full. The run continues.
//   - The CLI "watcher check" command runs RunAll and CheckSystemDeps to
//     display readiness.
package preflight
