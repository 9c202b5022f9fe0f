package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var byteUnits = []string{"KB", "MB", "GB"}

// Bytes renders a byte count with two decimals in binary units,
// e.g. 1536 -> "1.50 KB". Values stop at GB.
func Bytes(n uint64) string {
	value := float64(n)
	unit := "B"
	for _, next := range byteUnits {
		if value < 1024 {
			break
		}
		value /= 1024
		unit = next
	}
	return strconv.FormatFloat(round2(value), 'f', 2, 64) + " " + unit
}

// round2 rounds to two decimals with halves going up, matching how the web
// client has always displayed these values.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// Uptime renders whole seconds as "[Nd ]HH:MM:SS". The day prefix is
// present only when at least one full day has elapsed.
func Uptime(seconds uint64) string {
	days := seconds / 86400
	seconds -= days * 86400
	hours := seconds / 3600
	seconds -= hours * 3600
	minutes := seconds / 60
	seconds -= minutes * 60

	clock := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, clock)
	}
	return clock
}

// Load renders load averages with two decimals joined by " - ".
// Exact halves round up (2.125 -> "2.13"), not to even.
func Load(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(round2(v), 'f', 2, 64)
	}
	return strings.Join(parts, " - ")
}

// Temperature renders degrees Celsius using the shortest decimal form.
func Temperature(celsius float64) string {
	return strconv.FormatFloat(celsius, 'f', -1, 64) + "°C"
}

// Timestamp renders t in UTC as "YYYY-MM-DD HH:MM:SS", dropping sub-second precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.DateTime)
}

// ImageDescription combines the modification time and size of a captured image.
func ImageDescription(modTime time.Time, size int64) string {
	if size < 0 {
		size = 0
	}
	return fmt.Sprintf("%s (%s)", Timestamp(modTime), Bytes(uint64(size)))
}
