package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, action := range []string{"startCapture", "stopCapture", "loadConfig", "saveConfig", "loadStatus", "loadHistory", "unknown"} {
		for _, status := range []string{"200", "400", "404", "500", "501", "503"} {
			APIActionsTotal.WithLabelValues(action, status)
		}
	}

	for _, result := range []string{"unchanged", "updated", "empty", "error"} {
		PreviewRefreshTotal.WithLabelValues(result)
	}

	for _, mode := range []string{"full", "partial"} {
		StatusRefreshTotal.WithLabelValues(mode)
		StatusRefreshDuration.WithLabelValues(mode)
	}

	for _, probe := range []string{"camera", "temperature", "disk", "load", "uptime"} {
		StatusProbeErrorsTotal.WithLabelValues(probe)
	}

	for _, window := range []string{"1m", "5m", "15m"} {
		SystemLoad.WithLabelValues(window)
	}

	for _, status := range []string{"success", "error"} {
		HistoryWritesTotal.WithLabelValues(status)
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	for _, op := range []string{"stat", "open"} {
		for _, vol := range []string{"capture", "history", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, result := range []string{"success", "failure", "missing"} {
		AuthAttemptsTotal.WithLabelValues(result)
	}
}
