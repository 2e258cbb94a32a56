// Package httpapi exposes the document-store server's HTTP surface: the
// /action/{op} data-plane endpoints, token exchange, and liveness.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediavault/mediavault/internal/common"
	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/server/auth"
	"github.com/mediavault/mediavault/internal/server/storage"
)

// Config carries the API's own settings, a subset of the server config.
type Config struct {
	APIKey           string
	JWTSecret        string
	TokenValidity    time.Duration
	OffloadThreshold int64
}

// Blobs is the content offload contract, satisfied by blob.Service. A nil
// Blobs disables offloading; documents keep their inline content.
type Blobs interface {
	Put(ctx context.Context, key, content string) error
	Get(ctx context.Context, key string) (string, error)
}

// NewRouter wires the full route tree. Every /action and /auth route
// requires authentication; /health does not.
func NewRouter(store storage.Store, blobs Blobs, cfg Config, log logging.Logger) chi.Router {
	api := &API{store: store, blobs: blobs, cfg: cfg, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", api.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(api.authenticate)
		r.Post("/action/{op}", api.handleAction)
		r.Post("/auth/token", api.handleToken)
	})

	return r
}

// authenticate admits requests carrying either the shared api key or a
// valid bearer token previously issued by /auth/token.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKeyOK(r) {
			next.ServeHTTP(w, r)
			return
		}

		if raw := r.Header.Get("Authorization"); strings.HasPrefix(raw, "Bearer ") {
			token := strings.TrimPrefix(raw, "Bearer ")
			if _, err := auth.GetSubjectFromToken(token, []byte(a.cfg.JWTSecret)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		a.writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}

func (a *API) apiKeyOK(r *http.Request) bool {
	key := r.Header.Get(common.APIKeyHeaderName)
	if key == "" || a.cfg.APIKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.cfg.APIKey)) == 1
}
