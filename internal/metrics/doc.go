// Package metrics provides Prometheus instrumentation for the timelapse server.
//
// All metrics are prefixed with "timelapse_" and registered on the default
// registry through promauto, so they are served by promhttp.Handler on the
// metrics port.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//   - HTTPRateLimitedTotal: Counter of requests rejected by the rate limiter
//
// ## API Metrics
//
//   - APIActionsTotal: Counter of API actions by action and response status
//
// ## Preview Metrics
//
// Track the background refresh of the latest capture's thumbnail:
//   - PreviewRefreshTotal: Counter of refresh cycles by result
//   - PreviewExtractDuration: Histogram of thumbnail extraction time
//   - PreviewThumbnailBytes: Gauge of the cached thumbnail size
//   - PreviewPopulated: Gauge, 1 while a thumbnail is cached
//   - PreviewLastUpdateTimestamp: Gauge of the last preview change
//
// ## Status Metrics
//
// Mirror the raw health readings behind the status page:
//   - StatusRefreshTotal, StatusRefreshDuration: refreshes by mode
//   - StatusProbeErrorsTotal: failed probes by probe name
//   - CameraDetected, CPUTemperatureCelsius, SystemLoad
//   - DiskFreeBytes, DiskTotalBytes, UptimeSeconds
//
// ## History Metrics
//
//   - HistoryWritesTotal: Counter of samples written by status
//   - HistoryPrunedTotal: Counter of samples removed by retention
//   - HistorySamples, HistoryDBSizeBytes: collected by [Collector]
//
// ## Filesystem Metrics
//
// Stale NFS handle retries, recorded through the filesystem.Observer
// returned by [NewFilesystemObserver].
//
// # Usage
//
//	metrics.InitializeMetrics()
//	metrics.SetAppInfo(version, commit, runtime.Version())
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
package metrics
