/*
Package filesystem wraps os.Stat and os.Open with retry logic for NFS stale
file handle errors (ESTALE).

The capture directory of a timelapse rig is frequently an NFS or SMB share
written by another host; a stale handle right after the capture tool replaces
latest.jpg is transient and clears on the next attempt.

Only ESTALE triggers a retry. Every other error is returned immediately.
Defaults: 3 retries, 50ms initial backoff doubling up to 500ms.

Metrics are reported through an [Observer] registered with [SetObserver];
the metrics package provides the Prometheus implementation.
*/
package filesystem
