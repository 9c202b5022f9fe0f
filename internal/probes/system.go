package probes

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"timelapse/internal/logging"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// System probes the local host.
type System struct {
	// Vcgencmd is the firmware tool used for the camera and temperature probes.
	Vcgencmd string
	// Timeout bounds each external command.
	Timeout time.Duration

	run CommandRunner
}

// NewSystem returns probes for the local Raspberry Pi.
func NewSystem() *System {
	return &System{Vcgencmd: "vcgencmd", Timeout: 5 * time.Second}
}

// WithRunner replaces the command runner used for vcgencmd.
func (s *System) WithRunner(run CommandRunner) *System {
	s.run = run
	return s
}

func (s *System) vcgencmd(ctx context.Context, args ...string) (string, error) {
	run := s.run
	if run == nil {
		if _, err := exec.LookPath(s.Vcgencmd); err != nil {
			return "", fmt.Errorf("%w: %s not found", ErrUnavailable, s.Vcgencmd)
		}
		run = execRunner
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	out, err := run(ctx, s.Vcgencmd, args...)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %v", ErrProbe, s.Vcgencmd, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Camera reports whether the firmware detects a camera module.
func (s *System) Camera(ctx context.Context) (CameraInfo, error) {
	out, err := s.vcgencmd(ctx, "get_camera")
	if err != nil {
		return CameraInfo{}, err
	}
	return parseCamera(out)
}

// parseCamera reads output like "supported=1 detected=1, libcamera interfaces=0".
func parseCamera(out string) (CameraInfo, error) {
	fields := strings.FieldsFunc(out, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t'
	})

	var info CameraInfo
	seen := false
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch key {
		case "supported":
			info.Supported = value != "0"
		case "detected":
			info.Detected = value != "0"
			seen = true
		}
	}
	if !seen {
		return CameraInfo{}, fmt.Errorf("%w: unexpected get_camera output %q", ErrProbe, out)
	}
	return info, nil
}

// Temperature returns the SoC temperature in degrees Celsius, falling back
// to the kernel thermal sensors when vcgencmd is not available.
func (s *System) Temperature(ctx context.Context) (float64, error) {
	out, err := s.vcgencmd(ctx, "measure_temp")
	if err == nil {
		return parseTemperature(out)
	}
	logging.Debug("vcgencmd measure_temp failed, trying thermal sensors: %v", err)

	sensors, sensorErr := host.SensorsTemperaturesWithContext(ctx)
	if t, ok := pickCPUSensor(sensors); ok {
		return t, nil
	}
	if sensorErr != nil {
		return 0, fmt.Errorf("%w: %v (sensors: %v)", ErrProbe, err, sensorErr)
	}
	return 0, fmt.Errorf("%w: no temperature source: %v", ErrUnavailable, err)
}

// parseTemperature reads output like "temp=48.3'C".
func parseTemperature(out string) (float64, error) {
	value, ok := strings.CutPrefix(out, "temp=")
	if !ok {
		return 0, fmt.Errorf("%w: unexpected measure_temp output %q", ErrProbe, out)
	}
	value = strings.TrimRight(value, "'C")
	t, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse temperature %q: %v", ErrProbe, out, err)
	}
	return t, nil
}

func pickCPUSensor(sensors []host.TemperatureStat) (float64, bool) {
	var fallback float64
	found := false
	for _, s := range sensors {
		if s.Temperature <= 0 {
			continue
		}
		key := strings.ToLower(s.SensorKey)
		if strings.Contains(key, "cpu") || strings.Contains(key, "soc") || strings.Contains(key, "thermal") {
			return s.Temperature, true
		}
		if !found {
			fallback, found = s.Temperature, true
		}
	}
	return fallback, found
}

// DiskUsage reports free and total bytes of the filesystem holding path.
func (s *System) DiskUsage(ctx context.Context, path string) (DiskUsage, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("%w: disk usage of %s: %v", ErrProbe, path, err)
	}
	if usage.Total == 0 {
		return DiskUsage{}, fmt.Errorf("%w: %s reports zero capacity", ErrProbe, path)
	}
	return DiskUsage{Free: usage.Free, Total: usage.Total}, nil
}

// LoadAverage returns the 1, 5 and 15 minute load averages.
func (s *System) LoadAverage(ctx context.Context) (LoadAverage, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return LoadAverage{}, fmt.Errorf("%w: load average: %v", ErrProbe, err)
	}
	return LoadAverage{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}, nil
}

// Uptime returns the host uptime in seconds.
func (s *System) Uptime(ctx context.Context) (uint64, error) {
	up, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: uptime: %v", ErrProbe, err)
	}
	return up, nil
}

var _ Probes = (*System)(nil)
