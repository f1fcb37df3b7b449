// Package preflight validates a project before a sync run touches the
// network.
//
// The checks run in two contexts:
//   - The sync command calls RunLocal before acquiring the project lock;
//     a failure aborts the run as a configuration error, before any
//     network activity.
//   - The status command calls RunAll, which adds endpoint reachability
//     probes to the local checks for display.
package preflight
