package api

import (
	"net/http"

	"quickpim/internal/capture"
)

type captureResponse struct {
	Captured bool `json:"captured"`
}

// Capture accepts one observed outbound request. Observations that carry no
// usable bearer token are acknowledged with captured=false.
func (h *APIHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var obs capture.Observation
	if err := decodeJSON(r, &obs); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	ok, err := h.capture.Observe(r.Context(), obs)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, captureResponse{Captured: ok})
}
