// Package middleware provides HTTP middleware for the timelapse server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - HTTP basic authentication against a plain or bcrypt password
//   - Prometheus request metrics with bounded path labels
//   - Per-client rate limiting of the API
//   - Security response headers
package middleware
