package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RandomUsername returns a username that is still free in the project
func (h *Handler) RandomUsername(w http.ResponseWriter, r *http.Request) {
	username, err := h.users.RandomUsername(r.Context(), chi.URLParam(r, projectNameParam))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeText(w, http.StatusOK, username)
}
