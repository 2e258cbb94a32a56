package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
	"github.com/mediavault/mediavault/internal/server/auth"
	"github.com/mediavault/mediavault/internal/server/blob"
	"github.com/mediavault/mediavault/internal/server/storage"
)

var validate = validator.New()

// API holds the handler dependencies.
type API struct {
	store storage.Store
	blobs Blobs
	cfg   Config
	log   logging.Logger
}

// actionRequest is the body of every /action call. DataSource and Database
// are accepted for wire compatibility; this server serves a single logical
// database.
type actionRequest struct {
	DataSource string          `json:"dataSource"`
	Database   string          `json:"database"`
	Collection string          `json:"collection" validate:"required"`
	Filter     models.Document `json:"filter"`
	Document   models.Document `json:"document"`
	Update     models.Document `json:"update"`
	Limit      int             `json:"limit"`
}

func (a *API) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		a.writeError(w, http.StatusBadRequest, "collection is required")
		return
	}

	ctx := r.Context()

	switch op := chi.URLParam(r, "op"); op {
	case "find":
		docs, err := a.store.Find(ctx, req.Collection, req.Filter, req.Limit)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		a.rehydrate(r, docs)
		if docs == nil {
			docs = []models.Document{}
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"documents": docs})

	case "insertOne":
		if req.Document == nil {
			a.writeError(w, http.StatusBadRequest, "document is required")
			return
		}
		doc := a.offload(r, req.Document)
		id, err := a.store.InsertOne(ctx, req.Collection, doc)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"insertedId": id})

	case "updateOne":
		if req.Update == nil {
			a.writeError(w, http.StatusBadRequest, "update is required")
			return
		}
		n, err := a.store.UpdateOne(ctx, req.Collection, req.Filter, req.Update)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"matchedCount": n, "modifiedCount": n})

	case "deleteOne":
		n, err := a.store.DeleteOne(ctx, req.Collection, req.Filter)
		if err != nil {
			a.serverError(w, r, err)
			return
		}
		a.writeJSON(w, http.StatusOK, map[string]any{"deletedCount": n})

	default:
		a.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", op))
	}
}

// handleToken exchanges a valid api key for a short-lived bearer token.
// Only the key itself is accepted here; a bearer token cannot mint another.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if !a.apiKeyOK(r) {
		a.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, err := auth.GenerateToken("api-key-client", []byte(a.cfg.JWTSecret), a.cfg.TokenValidity)
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresIn": int(a.cfg.TokenValidity.Seconds()),
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// offload moves oversized inline content to object storage, replacing it
// with a reference. Offload failures keep the content inline; storing data
// beats losing it.
func (a *API) offload(r *http.Request, doc models.Document) models.Document {
	if a.blobs == nil || a.cfg.OffloadThreshold <= 0 {
		return doc
	}
	content, ok := doc["content"].(string)
	if !ok || int64(len(content)) <= a.cfg.OffloadThreshold {
		return doc
	}

	key := blob.NewStorageKey()
	if err := a.blobs.Put(r.Context(), key, content); err != nil {
		a.log.Warn(r.Context(), "content offload failed, keeping inline", "error", err)
		return doc
	}

	out := doc.Clone()
	delete(out, "content")
	out["contentRef"] = key
	return out
}

// rehydrate restores offloaded content into found documents, in place.
// Fetch failures leave the reference for the client to retry later.
func (a *API) rehydrate(r *http.Request, docs []models.Document) {
	if a.blobs == nil {
		return
	}
	for _, doc := range docs {
		key, ok := doc["contentRef"].(string)
		if !ok || key == "" {
			continue
		}
		content, err := a.blobs.Get(r.Context(), key)
		if err != nil {
			a.log.Warn(r.Context(), "content rehydration failed", "key", key, "error", err)
			continue
		}
		doc["content"] = content
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error(context.Background(), "writing response failed", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]any{"error": msg})
}

func (a *API) serverError(w http.ResponseWriter, r *http.Request, err error) {
	a.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	a.writeError(w, http.StatusInternalServerError, "internal error")
}
