// Package handlers provides the HTTP handlers of the timelapse web client.
//
// It includes handlers for:
//   - The legacy action endpoint (/api.php) backed by [api.Dispatcher]
//   - The current preview thumbnail (/preview.php)
//   - Liveness, health and version endpoints
//
// Handlers never compute state themselves. The preview and status loops
// own it and the handlers only read what was last published.
package handlers
