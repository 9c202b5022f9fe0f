package probes

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCamera(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    CameraInfo
		wantErr bool
	}{
		{name: "detected", out: "supported=1 detected=1", want: CameraInfo{Supported: true, Detected: true}},
		{name: "not detected", out: "supported=1 detected=0", want: CameraInfo{Supported: true}},
		{name: "libcamera suffix", out: "supported=1 detected=1, libcamera interfaces=0", want: CameraInfo{Supported: true, Detected: true}},
		{name: "garbage", out: "error=1 error_msg=\"Command not registered\"", wantErr: true},
		{name: "empty", out: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCamera(tt.out)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrProbe)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTemperature(t *testing.T) {
	got, err := parseTemperature("temp=48.3'C")
	require.NoError(t, err)
	assert.InDelta(t, 48.3, got, 1e-9)

	got, err = parseTemperature("temp=65.0'C")
	require.NoError(t, err)
	assert.InDelta(t, 65.0, got, 1e-9)

	_, err = parseTemperature("VCHI initialization failed")
	assert.ErrorIs(t, err, ErrProbe)

	_, err = parseTemperature("temp=hot'C")
	assert.ErrorIs(t, err, ErrProbe)
}

func TestPickCPUSensor(t *testing.T) {
	sensors := []host.TemperatureStat{
		{SensorKey: "nvme_composite", Temperature: 38},
		{SensorKey: "cpu_thermal", Temperature: 51.5},
	}
	got, ok := pickCPUSensor(sensors)
	assert.True(t, ok)
	assert.Equal(t, 51.5, got)

	got, ok = pickCPUSensor(sensors[:1])
	assert.True(t, ok)
	assert.Equal(t, 38.0, got)

	_, ok = pickCPUSensor([]host.TemperatureStat{{SensorKey: "cpu", Temperature: 0}})
	assert.False(t, ok)
}

func TestSystemCameraUsesRunner(t *testing.T) {
	var gotArgs []string
	s := NewSystem().WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("supported=1 detected=1\n"), nil
	})

	info, err := s.Camera(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Detected)
	assert.Equal(t, []string{"vcgencmd", "get_camera"}, gotArgs)
}

func TestSystemCameraRunnerFailure(t *testing.T) {
	s := NewSystem().WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 255")
	})

	_, err := s.Camera(context.Background())
	assert.ErrorIs(t, err, ErrProbe)
}

func TestSystemTemperatureUsesVcgencmd(t *testing.T) {
	s := NewSystem().WithRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		require.Equal(t, []string{"measure_temp"}, args)
		return []byte("temp=42.8'C\n"), nil
	})

	got, err := s.Temperature(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 42.8, got, 1e-9)
}

func TestSystemDiskUsage(t *testing.T) {
	usage, err := NewSystem().DiskUsage(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.NotZero(t, usage.Total)
	assert.LessOrEqual(t, usage.Free, usage.Total)

	_, err = NewSystem().DiskUsage(context.Background(), "/definitely/not/a/mount/point")
	assert.ErrorIs(t, err, ErrProbe)
}
