package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"quickpim/internal/domain"
)

type selectionsResponse struct {
	Selections []domain.RoleSelection `json:"selections"`
}

type setSelectionRequest struct {
	Checked bool `json:"checked"`
}

// ListSelections returns the persisted checkbox state.
func (h *APIHandler) ListSelections(w http.ResponseWriter, r *http.Request) {
	sels, err := h.selections.List(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionsResponse{Selections: sels})
}

// SetSelection records the checkbox state of one role. The key may contain
// slashes, so it is taken from the wildcard segment and unescaped.
func (h *APIHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, h.logger, r, domain.ErrValidation(reasonInvalidPath, "invalid selection key: %v", err))
		return
	}
	var body setSelectionRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	sel, err := h.selections.Set(r.Context(), key, body.Checked)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}
