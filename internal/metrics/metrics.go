package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timelapse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timelapse_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

// API metrics
var (
	APIActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_api_actions_total",
			Help: "Total number of API actions by action and response status",
		},
		[]string{"action", "status"},
	)
)

// Preview metrics
var (
	PreviewRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_preview_refresh_total",
			Help: "Total number of preview refresh cycles by result (unchanged, updated, empty, error)",
		},
		[]string{"result"},
	)

	PreviewExtractDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timelapse_preview_extract_duration_seconds",
			Help:    "Time spent extracting the preview thumbnail from the latest capture",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	PreviewThumbnailBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_preview_thumbnail_bytes",
			Help: "Size of the cached preview thumbnail in bytes",
		},
	)

	PreviewPopulated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_preview_populated",
			Help: "Whether a preview thumbnail is cached (1) or not (0)",
		},
	)

	PreviewLastUpdateTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_preview_last_update_timestamp",
			Help: "Unix timestamp of the last preview change",
		},
	)
)

// Status metrics
var (
	StatusRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_status_refresh_total",
			Help: "Total number of status refreshes by mode (full, partial)",
		},
		[]string{"mode"},
	)

	StatusRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timelapse_status_refresh_duration_seconds",
			Help:    "Status refresh duration in seconds by mode",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	StatusProbeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_status_probe_errors_total",
			Help: "Total number of failed health probes by probe",
		},
		[]string{"probe"},
	)

	CameraDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_camera_detected",
			Help: "Whether the camera module is detected (1) or not (0)",
		},
	)

	CPUTemperatureCelsius = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_cpu_temperature_celsius",
			Help: "SoC temperature in degrees Celsius",
		},
	)

	SystemLoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timelapse_system_load",
			Help: "System load average by window",
		},
		[]string{"window"}, // "1m", "5m", "15m"
	)

	DiskFreeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_capture_disk_free_bytes",
			Help: "Free bytes on the capture volume",
		},
	)

	DiskTotalBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_capture_disk_total_bytes",
			Help: "Total bytes on the capture volume",
		},
	)

	UptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_host_uptime_seconds",
			Help: "Host uptime in seconds",
		},
	)
)

// History metrics
var (
	HistoryWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_history_writes_total",
			Help: "Total number of status samples written to the history store",
		},
		[]string{"status"},
	)

	HistoryPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timelapse_history_pruned_total",
			Help: "Total number of history samples removed by retention",
		},
	)

	HistorySamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_history_samples",
			Help: "Number of samples currently held in the history store",
		},
	)

	HistoryDBSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timelapse_history_db_size_bytes",
			Help: "Size of the history database file in bytes",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_filesystem_stale_errors_total",
			Help: "Total number of stale NFS file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timelapse_filesystem_retry_duration_seconds",
			Help:    "Total time spent in a retried filesystem operation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)
)

// Auth metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelapse_auth_attempts_total",
			Help: "Total number of HTTP basic auth attempts by result",
		},
		[]string{"result"}, // "success", "failure", "missing"
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timelapse_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
