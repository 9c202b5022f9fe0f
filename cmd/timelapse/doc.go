// Package main provides the entry point for the timelapse web server.
//
// The server backs the RaspiCam timelapse web client: it serves the static
// client, a preview thumbnail of the latest capture, and a small JSON action
// API reporting camera and host status.
//
// # Application Lifecycle
//
//  1. Configuration Loading: environment variables and optional YAML file
//  2. Memory Configuration: sets GOMEMLIMIT from MEMORY_LIMIT (see package memory)
//  3. Metrics Initialization: Prometheus series and filesystem retry observer
//  4. Component Initialization:
//     - Preview Cache: extracts the EXIF thumbnail of latest.jpg
//     - Status History: SQLite store of full refresh readings (if enabled)
//     - Status Aggregator: camera, disk, temperature, load and uptime probes
//  5. HTTP Server Setup: routes, middleware chain, optional TLS
//  6. Graceful Shutdown: SIGINT/SIGTERM cancels the loops and stops the servers
//
// # Background Services
//
//   - Preview loop: refreshes the preview every PREVIEW_INTERVAL
//   - Capture watch: nudges the preview loop on file events (if WATCH_CAPTURE)
//   - Status loop: full status refresh every STATUS_INTERVAL
//   - Metrics collector: history store gauges every minute (if history is enabled)
//
// # Middleware Chain
//
// Requests pass through, outermost first: the request timer, W3C access
// logging, Prometheus metrics, security headers, HTTP Basic authentication
// and the router. /api.php is additionally timed into X-Duration and rate
// limited per client IP. Status and preview polls are left out of the
// access log unless LOG_POLLING is set.
package main
