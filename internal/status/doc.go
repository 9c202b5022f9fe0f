// Package status maintains the health snapshot served by the loadStatus
// API action.
//
// The [Aggregator] owns six named entries (capture mode, latest picture,
// free disk space, CPU temperature, system load and uptime). A full refresh
// queries every probe and runs on a ticker; a partial refresh only updates
// the latest picture, load and uptime so that clients can poll cheaply.
// Each failing probe degrades only its own entry.
//
// New values are computed without holding the lock and published together,
// so [Aggregator.Snapshot] never observes a half-written refresh.
package status
