package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/highscore-api/internal/domain"
)

// statusFor maps domain error kinds to HTTP status codes. A missing project
// counts as bad input everywhere except direct project lookups.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidHighScore, domain.KindInvalidProject, domain.KindOutOfRange, domain.KindProjectNotFound:
		return http.StatusBadRequest
	case domain.KindHighScoreNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes domain errors as plain text with their own message.
// Anything else is logged and answered with the generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindUnknown {
		h.writeInternalError(w, r, err)
		return
	}
	h.writeText(w, statusFor(kind), err.Error())
}

func (h *Handler) writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	h.writeText(w, http.StatusInternalServerError, domain.SomethingWentWrong)
}
