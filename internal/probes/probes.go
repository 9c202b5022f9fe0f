package probes

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrProbe reports a probe that ran and failed.
	ErrProbe = errors.New("probe failed")
	// ErrUnavailable reports a probe that cannot run on this host.
	ErrUnavailable = errors.New("probe unavailable")
)

// CameraInfo is the firmware's view of the camera connector.
type CameraInfo struct {
	Supported bool `json:"supported"`
	Detected  bool `json:"detected"`
}

// DiskUsage describes the filesystem holding a path.
type DiskUsage struct {
	Free  uint64 `json:"free"`
	Total uint64 `json:"total"`
}

// LoadAverage holds the 1, 5 and 15 minute load averages.
type LoadAverage struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// Probes is the set of health readers used by a full status refresh.
type Probes interface {
	Camera(ctx context.Context) (CameraInfo, error)
	Temperature(ctx context.Context) (float64, error)
	DiskUsage(ctx context.Context, path string) (DiskUsage, error)
	LoadAverage(ctx context.Context) (LoadAverage, error)
	Uptime(ctx context.Context) (uint64, error)
}

// Reading is the raw result of one full refresh. A nil field means the
// corresponding probe failed.
type Reading struct {
	Time           time.Time
	CameraDetected bool
	Temperature    *float64
	Load           *LoadAverage
	Disk           *DiskUsage
	Uptime         *uint64
}
