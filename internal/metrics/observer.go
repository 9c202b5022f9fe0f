package metrics

import (
	"timelapse/internal/filesystem"
	"timelapse/internal/probes"
)

// filesystemObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem retry
// metrics into the Prometheus counters and histograms declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetryDuration(retryOp, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(retryOp, volume).Observe(durationSeconds)
}

func (o *filesystemObserver) ObserveStaleError(retryOp, volume string) {
	FilesystemStaleErrors.WithLabelValues(retryOp, volume).Inc()
}

// ReadingObserver exports every full status refresh as gauges. Probes that
// failed leave their gauge at the previous value.
type ReadingObserver struct{}

// NewReadingObserver creates an observer for status readings.
func NewReadingObserver() *ReadingObserver {
	return &ReadingObserver{}
}

// ObserveReading implements status.Observer.
func (o *ReadingObserver) ObserveReading(r probes.Reading) {
	if r.CameraDetected {
		CameraDetected.Set(1)
	} else {
		CameraDetected.Set(0)
	}
	if r.Temperature != nil {
		CPUTemperatureCelsius.Set(*r.Temperature)
	}
	if r.Load != nil {
		SystemLoad.WithLabelValues("1m").Set(r.Load.Load1)
		SystemLoad.WithLabelValues("5m").Set(r.Load.Load5)
		SystemLoad.WithLabelValues("15m").Set(r.Load.Load15)
	}
	if r.Disk != nil {
		DiskFreeBytes.Set(float64(r.Disk.Free))
		DiskTotalBytes.Set(float64(r.Disk.Total))
	}
	if r.Uptime != nil {
		UptimeSeconds.Set(float64(*r.Uptime))
	}
}
