package status

import "timelapse/internal/media"

const (
	valueUnknown   = "unknown"
	valueError     = "error"
	valueNoPicture = "(none)"
	valueNoCamera  = "No camera detected"
)

// MetricEntry is one displayed status line.
type MetricEntry struct {
	Title string   `json:"title"`
	Value string   `json:"value"`
	Type  Severity `json:"type"`
}

// Snapshot is the status document returned to the web client. Field order
// matches the JSON the client has always received.
type Snapshot struct {
	IsCapturing       bool               `json:"isCapturing"`
	LatestPictureHash *media.Fingerprint `json:"latestPictureHash"`
	CaptureMode       MetricEntry        `json:"captureMode"`
	LatestPicture     MetricEntry        `json:"latestPicture"`
	FreeDiskSpace     MetricEntry        `json:"freeDiskSpace"`
	CPUTemp           MetricEntry        `json:"cpuTemp"`
	SystemLoad        MetricEntry        `json:"systemLoad"`
	Uptime            MetricEntry        `json:"uptime"`
}

// NewSnapshot returns the initial snapshot: every value unknown.
func NewSnapshot() Snapshot {
	unknown := func(title string) MetricEntry {
		return MetricEntry{Title: title, Value: valueUnknown, Type: SeverityDefault}
	}
	return Snapshot{
		CaptureMode:   unknown("Capture Mode"),
		LatestPicture: unknown("Latest Picture"),
		FreeDiskSpace: unknown("Free Disk Space"),
		CPUTemp:       unknown("CPU Temperature"),
		SystemLoad:    unknown("System Load"),
		Uptime:        unknown("Uptime"),
	}
}
