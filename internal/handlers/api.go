package handlers

import (
	"encoding/json"
	"net/http"

	"timelapse/internal/logging"
)

// API serves /api.php. The action name comes from the query string; the
// remaining query and form values are handed to the action as its payload.
// X-Duration is added by middleware.Duration around this handler.
func (h *Handlers) API(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, "Malformed request", http.StatusBadRequest)
		return
	}

	body, code := h.api.Dispatch(r.Context(), r.URL.Query().Get("action"), r.Form)

	data, err := json.Marshal(body)
	if err != nil {
		logging.Error("failed to encode API response: %v", err)
		writeJSONError(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("failed to write API response: %v", err)
	}
}
