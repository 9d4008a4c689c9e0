package handler

import (
	"crypto/subtle"
	"net/http"
)

const (
	apiKeyRequiredMessage = HeaderAPIKey + " is required"
	unauthorizedMessage   = "Unauthorized"

	apiKeyQueryParam = "api_key"
)

// requireKey checks the API key against the client and admin keys. Routes
// with a QueryKey policy also accept the api_key query parameter.
func (h *Handler) requireKey(policy Policy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAPIKey)
		if key == "" && policy.QueryKey {
			key = r.URL.Query().Get(apiKeyQueryParam)
		}
		if key == "" {
			h.writeText(w, http.StatusBadRequest, apiKeyRequiredMessage)
			return
		}

		admin := keyEquals(key, h.auth.AdminKey)
		if !admin && (policy.Admin || !keyEquals(key, h.auth.ClientKey)) {
			h.writeText(w, http.StatusUnauthorized, unauthorizedMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func keyEquals(given, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
