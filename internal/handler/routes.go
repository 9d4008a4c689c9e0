package handler

import (
	"net/http"

	"github.com/highscore-api/internal/domain"
)

// Policy describes what a route requires before its handler runs
type Policy struct {
	// Admin restricts the route to the admin key
	Admin         bool
	// EncryptedBody requires an AES encrypted body keyed by the {projectName} project
	EncryptedBody bool
	// Body returns a pointer to the JSON shape an encrypted body must decode into
	Body          func() any
	// QueryKey also accepts the key from the api_key query parameter
	QueryKey      bool
}

type route struct {
	method  string
	pattern string
	policy  Policy
	handler http.HandlerFunc
}

var (
	clientPolicy = Policy{}
	adminPolicy  = Policy{Admin: true}
	// browsers cannot set headers on websocket upgrades
	socketPolicy = Policy{QueryKey: true}
)

// routes is the complete route table. Every route is guarded by its policy.
func (h *Handler) routes() []route {
	return []route{
		{http.MethodGet, "/api/highscores/{projectName}/top/{amount:-?[0-9]+}", clientPolicy, h.GetTop},
		{http.MethodGet, "/api/highscores/{projectName}/search/{username}", clientPolicy, h.GetByUsername},
		{http.MethodPost, "/api/highscores/{projectName}", Policy{
			EncryptedBody: true,
			Body:          func() any { return &domain.HighScore{} },
		}, h.AddHighScore},
		{http.MethodDelete, "/api/highscores/{projectName}", adminPolicy, h.DeleteHighScore},
		{http.MethodDelete, "/api/highscores/{projectName}/all", adminPolicy, h.DeleteAllHighScores},

		{http.MethodGet, "/api/projects/search/{projectName}", adminPolicy, h.GetProject},
		{http.MethodPost, "/api/projects", adminPolicy, h.CreateProject},
		{http.MethodDelete, "/api/projects/{projectName}", adminPolicy, h.DeleteProject},

		{http.MethodGet, "/api/users/{projectName}/random", clientPolicy, h.RandomUsername},

		{http.MethodGet, "/ws", socketPolicy, h.HandleWebSocket},
	}
}

// guard applies the API key gate and, when required, body decryption
func (h *Handler) guard(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.EncryptedBody {
			next = h.decryptBody(policy, next)
		}
		return h.requireKey(policy, next)
	}
}
