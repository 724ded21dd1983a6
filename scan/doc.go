// Package scan drives scan cycles.
//
// A cycle is: load the snapshot, fetch every source in parallel, filter
// through the rule registry, diff, save, dispatch alerts, then back up.
// Nothing in a cycle is fatal to the Ticker loop. A failed source is
// skipped, a corrupt snapshot becomes empty state, and failed deliveries
// or backups are logged and recorded in the run history.
package scan
