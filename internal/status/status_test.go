package status

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"timelapse/internal/media"
	"timelapse/internal/preview"
	"timelapse/internal/probes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeProbes struct {
	camera    probes.CameraInfo
	cameraErr error
	temp      float64
	tempErr   error
	disk      probes.DiskUsage
	diskErr   error
	load      probes.LoadAverage
	loadErr   error
	uptime    uint64
	uptimeErr error

	expensiveCalls atomic.Int32
	diskPath       atomic.Value
}

func healthyProbes() *fakeProbes {
	return &fakeProbes{
		camera: probes.CameraInfo{Supported: true, Detected: true},
		temp:   48.3,
		disk:   probes.DiskUsage{Free: 50 * 1024 * 1024, Total: 100 * 1024 * 1024},
		load:   probes.LoadAverage{Load1: 0.5, Load5: 0.25, Load15: 0.125},
		uptime: 90061,
	}
}

func (f *fakeProbes) Camera(context.Context) (probes.CameraInfo, error) {
	f.expensiveCalls.Add(1)
	return f.camera, f.cameraErr
}

func (f *fakeProbes) Temperature(context.Context) (float64, error) {
	f.expensiveCalls.Add(1)
	return f.temp, f.tempErr
}

func (f *fakeProbes) DiskUsage(_ context.Context, path string) (probes.DiskUsage, error) {
	f.expensiveCalls.Add(1)
	f.diskPath.Store(path)
	return f.disk, f.diskErr
}

func (f *fakeProbes) LoadAverage(context.Context) (probes.LoadAverage, error) {
	return f.load, f.loadErr
}

func (f *fakeProbes) Uptime(context.Context) (uint64, error) {
	return f.uptime, f.uptimeErr
}

type fakePreview struct {
	state atomic.Pointer[preview.State]
}

func (f *fakePreview) Current() *preview.State { return f.state.Load() }

type recordingObserver struct {
	mu       sync.Mutex
	readings []probes.Reading
}

func (r *recordingObserver) ObserveReading(reading probes.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings = append(r.readings, reading)
}

func (r *recordingObserver) last() probes.Reading {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readings[len(r.readings)-1]
}

func TestInitialSnapshotJSON(t *testing.T) {
	agg := New(healthyProbes(), &fakePreview{}, "/capture")

	data, err := json.Marshal(agg.Snapshot())
	require.NoError(t, err)

	want := `{"isCapturing":false,"latestPictureHash":null,` +
		`"captureMode":{"title":"Capture Mode","value":"unknown","type":"default"},` +
		`"latestPicture":{"title":"Latest Picture","value":"unknown","type":"default"},` +
		`"freeDiskSpace":{"title":"Free Disk Space","value":"unknown","type":"default"},` +
		`"cpuTemp":{"title":"CPU Temperature","value":"unknown","type":"default"},` +
		`"systemLoad":{"title":"System Load","value":"unknown","type":"default"},` +
		`"uptime":{"title":"Uptime","value":"unknown","type":"default"}}`
	assert.Equal(t, want, string(data))
}

func TestFullRefreshHealthy(t *testing.T) {
	p := healthyProbes()
	src := &fakePreview{}
	src.state.Store(&preview.State{
		Thumbnail:   []byte{0xFF, 0xD8},
		Fingerprint: media.Fingerprint("abc123"),
		Description: "2024-05-01 12:30:45 (2.50 MB)",
	})
	agg := New(p, src, "/capture")

	s := agg.FullRefresh(context.Background())

	assert.Equal(t, MetricEntry{Title: "Capture Mode", Value: "unknown", Type: SeverityDefault}, s.CaptureMode)
	assert.Equal(t, MetricEntry{Title: "Latest Picture", Value: "2024-05-01 12:30:45 (2.50 MB)", Type: SeveritySuccess}, s.LatestPicture)
	assert.Equal(t, MetricEntry{Title: "Free Disk Space", Value: "50.00 MB (50 %)", Type: SeveritySuccess}, s.FreeDiskSpace)
	assert.Equal(t, MetricEntry{Title: "CPU Temperature", Value: "48.3°C", Type: SeveritySuccess}, s.CPUTemp)
	assert.Equal(t, MetricEntry{Title: "System Load", Value: "0.50 - 0.25 - 0.13", Type: SeveritySuccess}, s.SystemLoad)
	assert.Equal(t, MetricEntry{Title: "Uptime", Value: "1d 01:01:01", Type: SeverityDefault}, s.Uptime)
	require.NotNil(t, s.LatestPictureHash)
	assert.Equal(t, media.Fingerprint("abc123"), *s.LatestPictureHash)
	assert.Equal(t, "/capture", p.diskPath.Load())

	assert.Equal(t, s, agg.Snapshot())
}

func TestLatestPictureWithoutPreview(t *testing.T) {
	agg := New(healthyProbes(), &fakePreview{}, "/capture")

	s := agg.PartialRefresh(context.Background())

	assert.Equal(t, "(none)", s.LatestPicture.Value)
	assert.Equal(t, SeverityDanger, s.LatestPicture.Type)
	assert.Nil(t, s.LatestPictureHash)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"latestPictureHash":null`)
	assert.Contains(t, string(data), `"latestPicture":{"title":"Latest Picture","value":"(none)","type":"danger"}`)
}

func TestCaptureMode(t *testing.T) {
	tests := []struct {
		name      string
		camera    probes.CameraInfo
		err       error
		wantValue string
		wantType  Severity
	}{
		{name: "detected", camera: probes.CameraInfo{Supported: true, Detected: true}, wantValue: "unknown", wantType: SeverityDefault},
		{name: "not detected", camera: probes.CameraInfo{Supported: true}, wantValue: "No camera detected", wantType: SeverityDanger},
		{name: "probe failed", err: probes.ErrUnavailable, wantValue: "No camera detected", wantType: SeverityDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProbes()
			p.camera, p.cameraErr = tt.camera, tt.err

			s := New(p, &fakePreview{}, "/capture").FullRefresh(context.Background())
			assert.Equal(t, tt.wantValue, s.CaptureMode.Value)
			assert.Equal(t, tt.wantType, s.CaptureMode.Type)
		})
	}
}

func TestFreePercent(t *testing.T) {
	tests := []struct {
		free, total uint64
		want        int
	}{
		{0, 100, 0},
		{4, 100, 0},
		{5, 100, 10},
		{15, 100, 20},
		{25, 100, 30},
		{29, 100, 30},
		{50, 100, 50},
		{95, 100, 100},
		{100, 100, 100},
		{1, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FreePercent(tt.free, tt.total), "FreePercent(%d, %d)", tt.free, tt.total)
	}
}

func TestFreeDiskSpaceEntry(t *testing.T) {
	tests := []struct {
		name      string
		free      uint64
		wantValue string
		wantType  Severity
	}{
		{name: "five percent rounds up to ten", free: 5, wantValue: "5.00 B (10 %)", wantType: SeveritySuccess},
		{name: "fifteen percent", free: 15, wantValue: "15.00 B (20 %)", wantType: SeveritySuccess},
		{name: "twenty five percent", free: 25, wantValue: "25.00 B (30 %)", wantType: SeveritySuccess},
		{name: "full disk", free: 0, wantValue: "0.00 B (0 %)", wantType: SeverityDanger},
		{name: "almost full disk", free: 4, wantValue: "4.00 B (0 %)", wantType: SeverityDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyProbes()
			p.disk = probes.DiskUsage{Free: tt.free, Total: 100}

			s := New(p, &fakePreview{}, "/capture").FullRefresh(context.Background())
			assert.Equal(t, tt.wantValue, s.FreeDiskSpace.Value)
			assert.Equal(t, tt.wantType, s.FreeDiskSpace.Type)
		})
	}
}

func TestSeverityThresholds(t *testing.T) {
	assert.Equal(t, SeverityDanger, diskSeverity(0))
	assert.Equal(t, SeverityDanger, diskSeverity(2))
	assert.Equal(t, SeverityWarning, diskSeverity(3))
	assert.Equal(t, SeverityWarning, diskSeverity(9))
	assert.Equal(t, SeveritySuccess, diskSeverity(10))

	assert.Equal(t, SeveritySuccess, temperatureSeverity(64.9))
	assert.Equal(t, SeverityWarning, temperatureSeverity(65))
	assert.Equal(t, SeverityWarning, temperatureSeverity(74.9))
	assert.Equal(t, SeverityDanger, temperatureSeverity(75))

	assert.Equal(t, SeveritySuccess, loadSeverity(1.99))
	assert.Equal(t, SeverityWarning, loadSeverity(2))
	assert.Equal(t, SeverityWarning, loadSeverity(4.99))
	assert.Equal(t, SeverityDanger, loadSeverity(5))
}

func TestProbeFailureDegradesOnlyItsEntry(t *testing.T) {
	boom := errors.New("boom")

	t.Run("temperature", func(t *testing.T) {
		p := healthyProbes()
		p.tempErr = boom
		s := New(p, &fakePreview{}, "/capture").FullRefresh(context.Background())

		assert.Equal(t, MetricEntry{Title: "CPU Temperature", Value: "error", Type: SeverityDanger}, s.CPUTemp)
		assert.Equal(t, SeveritySuccess, s.FreeDiskSpace.Type)
		assert.Equal(t, SeveritySuccess, s.SystemLoad.Type)
		assert.Equal(t, "1d 01:01:01", s.Uptime.Value)
	})

	t.Run("disk", func(t *testing.T) {
		p := healthyProbes()
		p.diskErr = boom
		s := New(p, &fakePreview{}, "/capture").FullRefresh(context.Background())

		assert.Equal(t, MetricEntry{Title: "Free Disk Space", Value: "error", Type: SeverityDanger}, s.FreeDiskSpace)
		assert.Equal(t, "48.3°C", s.CPUTemp.Value)
	})

	t.Run("zero capacity", func(t *testing.T) {
		p := healthyProbes()
		p.disk = probes.DiskUsage{}
		s := New(p, &fakePreview{}, "/capture").FullRefresh(context.Background())

		assert.Equal(t, "error", s.FreeDiskSpace.Value)
	})

	t.Run("load", func(t *testing.T) {
		p := healthyProbes()
		p.loadErr = boom
		s := New(p, &fakePreview{}, "/capture").FullRefresh(context.Background())

		assert.Equal(t, MetricEntry{Title: "System Load", Value: "error", Type: SeverityDanger}, s.SystemLoad)
		assert.Equal(t, "48.3°C", s.CPUTemp.Value)
	})

	t.Run("uptime", func(t *testing.T) {
		p := healthyProbes()
		p.uptimeErr = boom
		s := New(p, &fakePreview{}, "/capture").FullRefresh(context.Background())

		assert.Equal(t, MetricEntry{Title: "Uptime", Value: "error", Type: SeverityDefault}, s.Uptime)
		assert.Equal(t, SeveritySuccess, s.SystemLoad.Type)
	})
}

func TestPartialRefreshSkipsExpensiveProbes(t *testing.T) {
	p := healthyProbes()
	src := &fakePreview{}
	agg := New(p, src, "/capture")

	full := agg.FullRefresh(context.Background())
	calls := p.expensiveCalls.Load()

	p.temp = 80
	p.load = probes.LoadAverage{Load1: 6}
	p.uptime = 3661
	src.state.Store(&preview.State{Fingerprint: "new", Description: "2024-05-01 12:31:45 (1.00 KB)"})

	s := agg.PartialRefresh(context.Background())

	assert.Equal(t, calls, p.expensiveCalls.Load(), "partial refresh must not query camera, disk or temperature")
	assert.Equal(t, full.CPUTemp, s.CPUTemp)
	assert.Equal(t, full.FreeDiskSpace, s.FreeDiskSpace)
	assert.Equal(t, full.CaptureMode, s.CaptureMode)

	assert.Equal(t, "6.00 - 0.00 - 0.00", s.SystemLoad.Value)
	assert.Equal(t, SeverityDanger, s.SystemLoad.Type)
	assert.Equal(t, "01:01:01", s.Uptime.Value)
	assert.Equal(t, "2024-05-01 12:31:45 (1.00 KB)", s.LatestPicture.Value)
	require.NotNil(t, s.LatestPictureHash)
	assert.Equal(t, media.Fingerprint("new"), *s.LatestPictureHash)
}

func TestObserversReceiveReading(t *testing.T) {
	p := healthyProbes()
	p.tempErr = errors.New("no sensor")
	obs := &recordingObserver{}
	agg := New(p, &fakePreview{}, "/capture", obs)

	agg.PartialRefresh(context.Background())
	assert.Empty(t, obs.readings, "partial refreshes are not recorded")

	agg.FullRefresh(context.Background())
	r := obs.last()
	assert.True(t, r.CameraDetected)
	assert.Nil(t, r.Temperature)
	require.NotNil(t, r.Disk)
	assert.Equal(t, p.disk, *r.Disk)
	require.NotNil(t, r.Load)
	assert.Equal(t, 0.5, r.Load.Load1)
	require.NotNil(t, r.Uptime)
	assert.Equal(t, uint64(90061), *r.Uptime)
	assert.False(t, r.Time.IsZero())
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	obs := &recordingObserver{}
	agg := New(healthyProbes(), &fakePreview{}, "/capture", obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		agg.Run(ctx, 5*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return len(obs.readings) >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, "48.3°C", agg.Snapshot().CPUTemp.Value)
}

func TestConcurrentRefreshAndRead(t *testing.T) {
	agg := New(healthyProbes(), &fakePreview{}, "/capture")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); agg.FullRefresh(context.Background()) }()
		go func() { defer wg.Done(); agg.PartialRefresh(context.Background()) }()
		go func() { defer wg.Done(); _ = agg.Snapshot() }()
	}
	wg.Wait()

	assert.Equal(t, "48.3°C", agg.Snapshot().CPUTemp.Value)
}

func TestSeverityJSON(t *testing.T) {
	for sev, name := range severityNames {
		data, err := json.Marshal(sev)
		require.NoError(t, err)
		assert.Equal(t, `"`+name+`"`, string(data))

		var back Severity
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, sev, back)
	}

	_, err := json.Marshal(Severity(42))
	assert.Error(t, err)

	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"critical"`), &s))
	assert.Equal(t, "Severity(42)", Severity(42).String())
}

func TestLastFullRefresh(t *testing.T) {
	agg := New(healthyProbes(), &fakePreview{}, "/capture")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return fixed }

	assert.True(t, agg.LastFullRefresh().IsZero())

	agg.PartialRefresh(context.Background())
	assert.True(t, agg.LastFullRefresh().IsZero(), "partial refreshes do not count")

	agg.FullRefresh(context.Background())
	assert.Equal(t, fixed, agg.LastFullRefresh())
}
