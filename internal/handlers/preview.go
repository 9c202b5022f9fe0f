package handlers

import (
	"io"
	"net/http"
	"strconv"

	"timelapse/internal/logging"
)

const noPreviewMessage = "No preview image available"

// Preview serves the thumbnail of the latest capture. Clients poll it, so
// every response must be revalidated.
func (h *Handlers) Preview(w http.ResponseWriter, _ *http.Request) {
	state := h.preview.Current()
	if state == nil || len(state.Thumbnail) == 0 {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if _, err := io.WriteString(w, noPreviewMessage); err != nil {
			logging.Debug("failed to write preview response: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(state.Thumbnail)))
	w.Header().Set("Cache-Control", "must-revalidate")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(state.Thumbnail); err != nil {
		logging.Debug("failed to write preview image: %v", err)
	}
}
