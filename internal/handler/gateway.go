package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/highscore-api/internal/cipher"
	"github.com/highscore-api/internal/domain"
)

const (
	projectNameParam = "projectName"

	// ciphertext is base64, so this allows plaintext bodies of about 48KiB
	maxEncryptedBodyBytes = 64 << 10
)

const (
	aesVectorRequiredMessage  = HeaderAESVector + " is required"
	projectNameMissingMessage = `Route Value "` + projectNameParam + `" must be set.`
	notDeserializedMessage    = "The requested body could not be deserialized to the desired type."
	notDecryptedMessage       = "The requested body could not be decrypted."
)

// decryptBody replaces an encrypted request body with its plaintext. The
// body is decrypted with the key of the project named in the route and the
// vector from the AES-Vector header, and must decode into policy.Body.
func (h *Handler) decryptBody(policy Policy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vector := r.Header.Get(HeaderAESVector)
		if strings.TrimSpace(vector) == "" {
			h.writeText(w, http.StatusBadRequest, aesVectorRequiredMessage)
			return
		}

		projectName := chi.URLParam(r, projectNameParam)
		if strings.TrimSpace(projectName) == "" {
			h.writeText(w, http.StatusBadRequest, projectNameMissingMessage)
			return
		}

		key, err := h.keys.ProjectKey(r.Context(), projectName)
		if err != nil {
			if domain.KindOf(err) == domain.KindProjectNotFound {
				h.writeText(w, http.StatusBadRequest, domain.ProjectNotFound(projectName).Error())
				return
			}
			h.writeInternalError(w, r, err)
			return
		}

		ciphertext, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEncryptedBodyBytes))
		if err != nil {
			h.logger.Debug("failed to read encrypted body", "project", projectName, "error", err)
			h.writeText(w, http.StatusBadRequest, notDecryptedMessage)
			return
		}

		plaintext, err := cipher.Decrypt(string(ciphertext), key, vector)
		if err != nil {
			h.logger.Debug("failed to decrypt body", "project", projectName, "error", err)
			h.writeText(w, http.StatusBadRequest, notDecryptedMessage)
			return
		}

		if policy.Body != nil {
			if err := json.Unmarshal([]byte(plaintext), policy.Body()); err != nil {
				h.writeText(w, http.StatusBadRequest, notDeserializedMessage)
				return
			}
		}

		r.Body = io.NopCloser(bytes.NewReader([]byte(plaintext)))
		r.ContentLength = int64(len(plaintext))
		r.Header.Set("Content-Length", strconv.Itoa(len(plaintext)))
		r.Header.Set("Content-Type", "application/json")

		next.ServeHTTP(w, r)
	})
}
