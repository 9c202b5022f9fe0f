// Package probes reads the health figures shown on the status page:
// camera presence, SoC temperature, free space on the capture volume,
// load average and uptime.
//
// [System] talks to the Raspberry Pi firmware through vcgencmd and to the
// kernel through gopsutil. Every probe returns an error wrapping [ErrProbe]
// or [ErrUnavailable] instead of guessing a value.
package probes
