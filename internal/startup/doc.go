// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is loaded by [LoadConfig] from environment variables and an
// optional YAML file named by CONFIG_FILE. Environment variables win over the
// file; file keys are the lower-case variable names (capture_dir, port, ...).
//
//   - CAPTURE_DIR: Directory the capture process writes latest.jpg into (default: ../capture)
//   - STATIC_DIR: Web client assets (default: ./webapp)
//   - PORT: HTTP(S) server port (default: 4443)
//   - TLS_CERT, TLS_KEY: HTTPS certificate and key (default: config/timelapse.crt, config/timelapse.key)
//   - ALLOW_INSECURE_HTTP: Serve plain HTTP when no certificate is configured (default: false)
//   - USERNAME, PASSWORD: Basic auth credentials (default: timelapse/timelapse)
//   - PASSWORD_HASH: bcrypt hash, takes precedence over PASSWORD
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: false)
//   - METRICS_BIND: Metrics listener address, unauthenticated (default: 127.0.0.1)
//   - PREVIEW_INTERVAL: Preview poll interval as Go duration (default: 1s)
//   - STATUS_INTERVAL: Full status refresh interval (default: 10s)
//   - WATCH_CAPTURE: Refresh the preview on filesystem events (default: false)
//   - PREVIEW_FALLBACK: Downscale images that carry no EXIF thumbnail (default: false)
//   - HISTORY_ENABLED, HISTORY_DIR, HISTORY_RETENTION: SQLite status history (default: off, ./data, 24h)
//   - RATE_LIMIT: API requests per minute and client IP, 0 disables (default: 600)
//   - LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Access log filters (default: false)
//   - LOG_POLLING: Log the web client's preview and loadStatus polls (default: false)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - MEMORY_LIMIT, MEMORY_RATIO: read by package memory, environment only
//
// The password itself is never logged.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogPreviewInit], [LogStatusInit], [LogHistoryInit]: background loop setup
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownStepComplete], [LogShutdownComplete]
package startup
