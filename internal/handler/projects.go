package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/highscore-api/internal/domain"
)

// GetProject returns a project with its key and scores
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.GetByName(r.Context(), chi.URLParam(r, projectNameParam))
	if err != nil {
		if domain.KindOf(err) == domain.KindProjectNotFound {
			h.writeText(w, http.StatusNotFound, err.Error())
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// CreateProject creates a project, or returns the existing one with that name
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req domain.ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeText(w, http.StatusBadRequest, notDeserializedMessage)
		return
	}

	project, err := h.projects.Create(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/projects/search/"+url.PathEscape(project.Name))
	h.writeJSON(w, http.StatusCreated, project)
}

// DeleteProject deletes a project and its scores
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.DeleteByName(r.Context(), chi.URLParam(r, projectNameParam)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
