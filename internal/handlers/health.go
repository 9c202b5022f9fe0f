package handlers

import (
	"net/http"
	"runtime"
	"time"

	"timelapse/internal/startup"

	"github.com/dustin/go-humanize"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	PreviewAvailable  bool   `json:"previewAvailable"`
	PreviewUpdated    string `json:"previewUpdated,omitempty"`
	LastStatusRefresh string `json:"lastStatusRefresh,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports whether the background loops are producing data.
// A missing preview is not unhealthy: the camera may simply be idle.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       now.Sub(h.startedAt).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if state := h.preview.Current(); state != nil {
		response.PreviewAvailable = true
		response.PreviewUpdated = humanize.RelTime(state.UpdatedAt, now, "ago", "from now")
	}

	code := http.StatusOK
	last := h.status.LastFullRefresh()
	switch {
	case last.IsZero():
		response.Status = statusStarting
		code = http.StatusServiceUnavailable
	case h.staleAge > 0 && now.Sub(last) > h.staleAge:
		response.Status = statusDegraded
		response.LastStatusRefresh = last.Format(time.RFC3339)
	default:
		response.LastStatusRefresh = last.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	// For HEAD requests, only send headers (no body)
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSONStatus(w, "alive")
}
