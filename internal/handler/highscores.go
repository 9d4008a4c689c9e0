package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/highscore-api/internal/domain"
)

const amountNotPositiveMessage = "The amount must be greater than 0!"

// GetTop returns the best scores of a project
func (h *Handler) GetTop(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.Atoi(chi.URLParam(r, "amount"))
	if err != nil {
		// only overflow gets here, the route pattern guarantees digits
		h.writeText(w, http.StatusBadRequest, amountNotPositiveMessage)
		return
	}

	entries, err := h.highScores.GetTop(r.Context(), chi.URLParam(r, projectNameParam), amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// GetByUsername returns the score of one user
func (h *Handler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	hs, err := h.highScores.GetByUsername(r.Context(), chi.URLParam(r, projectNameParam), chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, hs)
}

// AddHighScore stores a decrypted score submission
func (h *Handler) AddHighScore(w http.ResponseWriter, r *http.Request) {
	var submission domain.HighScore
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.writeText(w, http.StatusBadRequest, notDeserializedMessage)
		return
	}

	stored, err := h.highScores.AddOrUpdate(r.Context(), chi.URLParam(r, projectNameParam), submission)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/highscores/search/"+url.PathEscape(stored.Username))
	h.writeJSON(w, http.StatusCreated, stored)
}

// DeleteHighScore removes a score matching username and value exactly
func (h *Handler) DeleteHighScore(w http.ResponseWriter, r *http.Request) {
	var submission domain.HighScore
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		h.writeText(w, http.StatusBadRequest, notDeserializedMessage)
		return
	}

	if err := h.highScores.Delete(r.Context(), chi.URLParam(r, projectNameParam), submission); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteAllHighScores removes every score of a project
func (h *Handler) DeleteAllHighScores(w http.ResponseWriter, r *http.Request) {
	if err := h.highScores.DeleteAll(r.Context(), chi.URLParam(r, projectNameParam)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
