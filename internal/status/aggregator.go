package status

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"timelapse/internal/format"
	"timelapse/internal/logging"
	"timelapse/internal/metrics"
	"timelapse/internal/preview"
	"timelapse/internal/probes"

	"golang.org/x/sync/errgroup"
)

// PreviewSource exposes the current preview state.
type PreviewSource interface {
	Current() *preview.State
}

// Observer receives the raw probe results of every full refresh.
type Observer interface {
	ObserveReading(probes.Reading)
}

// Aggregator owns the status snapshot.
type Aggregator struct {
	probes     probes.Probes
	preview    PreviewSource
	captureDir string
	observers  []Observer
	now        func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	lastFull time.Time

	errMu    sync.Mutex
	lastErrs map[string]string
}

// New creates an aggregator with the initial all-unknown snapshot.
// captureDir is the path whose filesystem is reported as free disk space.
func New(p probes.Probes, src PreviewSource, captureDir string, observers ...Observer) *Aggregator {
	return &Aggregator{
		probes:     p,
		preview:    src,
		captureDir: captureDir,
		observers:  observers,
		now:        time.Now,
		snapshot:   NewSnapshot(),
		lastErrs:   make(map[string]string),
	}
}

// Snapshot returns a copy of the current snapshot.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// LastFullRefresh returns when the last full refresh started, or the zero
// time before the first one completed.
func (a *Aggregator) LastFullRefresh() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastFull
}

// PartialRefresh updates the latest picture, system load and uptime and
// returns the resulting snapshot. Capture mode, disk space and temperature
// keep their last full-refresh values.
func (a *Aggregator) PartialRefresh(ctx context.Context) Snapshot {
	start := time.Now()
	defer observeRefresh("partial", start)

	next := a.Snapshot()
	a.applyCheap(ctx, &next)

	a.mu.Lock()
	a.snapshot.IsCapturing = next.IsCapturing
	a.snapshot.LatestPictureHash = next.LatestPictureHash
	a.snapshot.LatestPicture = next.LatestPicture
	a.snapshot.SystemLoad = next.SystemLoad
	a.snapshot.Uptime = next.Uptime
	out := a.snapshot
	a.mu.Unlock()

	return out
}

// FullRefresh queries every probe, publishes all six entries and notifies
// observers with the raw reading.
func (a *Aggregator) FullRefresh(ctx context.Context) Snapshot {
	start := time.Now()
	defer observeRefresh("full", start)

	reading := probes.Reading{Time: a.now()}
	next := a.Snapshot()

	var g errgroup.Group
	g.Go(func() error {
		next.CaptureMode, reading.CameraDetected = a.captureMode(ctx)
		return nil
	})
	g.Go(func() error {
		next.FreeDiskSpace, reading.Disk = a.freeDiskSpace(ctx)
		return nil
	})
	g.Go(func() error {
		next.CPUTemp, reading.Temperature = a.cpuTemp(ctx)
		return nil
	})
	_ = g.Wait()

	// Cheap fields last so the picture entry is as fresh as possible.
	load, uptime := a.applyCheap(ctx, &next)
	reading.Load = load
	reading.Uptime = uptime

	a.mu.Lock()
	a.snapshot = next
	a.lastFull = reading.Time
	a.mu.Unlock()

	for _, o := range a.observers {
		o.ObserveReading(reading)
	}
	return next
}

// Run performs a full refresh immediately and then every interval until
// ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) {
	logging.Info("Status refresh started (every %v)", interval)
	a.FullRefresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("Status refresh stopped")
			return
		case <-ticker.C:
			a.FullRefresh(ctx)
		}
	}
}

func observeRefresh(mode string, start time.Time) {
	metrics.StatusRefreshTotal.WithLabelValues(mode).Inc()
	metrics.StatusRefreshDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

// applyCheap fills the partial-refresh fields of s and returns the raw load
// and uptime values, nil when the probe failed.
func (a *Aggregator) applyCheap(ctx context.Context, s *Snapshot) (*probes.LoadAverage, *uint64) {
	state := a.preview.Current()
	if state != nil {
		fp := state.Fingerprint
		s.LatestPictureHash = &fp
		s.LatestPicture.Value = state.Description
		s.LatestPicture.Type = SeveritySuccess
	} else {
		s.LatestPictureHash = nil
		s.LatestPicture.Value = valueNoPicture
		s.LatestPicture.Type = SeverityDanger
	}

	var load *probes.LoadAverage
	if avg, err := a.probes.LoadAverage(ctx); err != nil {
		a.probeFailed("load", err)
		s.SystemLoad.Value = valueError
		s.SystemLoad.Type = SeverityDanger
	} else {
		a.probeRecovered("load")
		load = &avg
		s.SystemLoad.Value = format.Load(avg.Load1, avg.Load5, avg.Load15)
		s.SystemLoad.Type = loadSeverity(avg.Load1)
	}

	var uptime *uint64
	if secs, err := a.probes.Uptime(ctx); err != nil {
		a.probeFailed("uptime", err)
		s.Uptime.Value = valueError
		s.Uptime.Type = SeverityDefault
	} else {
		a.probeRecovered("uptime")
		uptime = &secs
		s.Uptime.Value = format.Uptime(secs)
		s.Uptime.Type = SeverityDefault
	}

	return load, uptime
}

func (a *Aggregator) captureMode(ctx context.Context) (MetricEntry, bool) {
	entry := a.Snapshot().CaptureMode

	info, err := a.probes.Camera(ctx)
	if err != nil {
		a.probeFailed("camera", err)
	} else {
		a.probeRecovered("camera")
	}

	if err != nil || !info.Detected {
		entry.Value = valueNoCamera
		entry.Type = SeverityDanger
		return entry, false
	}
	entry.Value = valueUnknown
	entry.Type = SeverityDefault
	return entry, true
}

func (a *Aggregator) freeDiskSpace(ctx context.Context) (MetricEntry, *probes.DiskUsage) {
	entry := a.Snapshot().FreeDiskSpace

	usage, err := a.probes.DiskUsage(ctx, a.captureDir)
	if err == nil && usage.Total == 0 {
		err = fmt.Errorf("%w: zero capacity", probes.ErrProbe)
	}
	if err != nil {
		a.probeFailed("disk", err)
		entry.Value = valueError
		entry.Type = SeverityDanger
		return entry, nil
	}
	a.probeRecovered("disk")

	percent := FreePercent(usage.Free, usage.Total)
	entry.Value = fmt.Sprintf("%s (%d %%)", format.Bytes(usage.Free), percent)
	entry.Type = diskSeverity(percent)
	return entry, &usage
}

func (a *Aggregator) cpuTemp(ctx context.Context) (MetricEntry, *float64) {
	entry := a.Snapshot().CPUTemp

	t, err := a.probes.Temperature(ctx)
	if err != nil {
		a.probeFailed("temperature", err)
		entry.Value = valueError
		entry.Type = SeverityDanger
		return entry, nil
	}
	a.probeRecovered("temperature")

	entry.Value = format.Temperature(t)
	entry.Type = temperatureSeverity(t)
	return entry, &t
}

// FreePercent rounds the free share of total to the nearest ten percent,
// halves rounding up.
func FreePercent(free, total uint64) int {
	if total == 0 {
		return 0
	}
	ratio := float64(free) / float64(total)
	return int(math.Round(ratio*10)) * 10
}

// probeFailed counts every failure but only logs when the error changes,
// since a missing probe fails on every cycle.
func (a *Aggregator) probeFailed(probe string, err error) {
	metrics.StatusProbeErrorsTotal.WithLabelValues(probe).Inc()

	msg := err.Error()
	a.errMu.Lock()
	changed := a.lastErrs[probe] != msg
	a.lastErrs[probe] = msg
	a.errMu.Unlock()

	if changed {
		logging.Warn("Status probe %s failed: %v", probe, err)
	}
}

func (a *Aggregator) probeRecovered(probe string) {
	a.errMu.Lock()
	_, failed := a.lastErrs[probe]
	delete(a.lastErrs, probe)
	a.errMu.Unlock()

	if failed {
		logging.Info("Status probe %s recovered", probe)
	}
}
