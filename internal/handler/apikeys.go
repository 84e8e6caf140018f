package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skycastd/skycast/internal/auth"
	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/server/middleware"
	"github.com/skycastd/skycast/internal/store"
)

// APIKeyHandler serves the API key lifecycle: listing with the one-time
// pending secret, admin issuance, view acknowledgment, regeneration, and
// revocation.
type APIKeyHandler struct {
	store *store.Store
	keys  *auth.Keys
}

// NewAPIKeyHandler creates an APIKeyHandler.
func NewAPIKeyHandler(st *store.Store, keys *auth.Keys) *APIKeyHandler {
	return &APIKeyHandler{store: st, keys: keys}
}

// keyView is the per-key document returned by ListForUser. PendingSecret is
// populated from the pending cache only while the secret has not been
// acknowledged; after that it is gone for good.
type keyView struct {
	ID            int64      `json:"id"`
	KeyID         string     `json:"key_id"`
	Name          string     `json:"name"`
	SecretViewed  bool       `json:"secret_viewed"`
	PendingSecret *string    `json:"pending_secret"`
	LastUsed      *time.Time `json:"last_used"`
	ExpiresAt     *time.Time `json:"expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type keysResponse struct {
	Success bool      `json:"success"`
	Keys    []keyView `json:"keys"`
}

// ListForUser returns all API keys owned by the user in the path, embedding
// the pending plaintext secret for keys not yet acknowledged. Users may only
// view their own keys; admins may view any.
// GET /api/users/{userID}/api-keys
func (h *APIKeyHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := auth.RequireOwner(principal, userID); err != nil {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	keys, err := h.store.ListAPIKeysByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list api keys")
		return
	}

	views := make([]keyView, len(keys))
	for i, k := range keys {
		views[i] = keyView{
			ID:           k.ID,
			KeyID:        k.KeyID,
			Name:         k.Name,
			SecretViewed: k.SecretViewed,
			LastUsed:     k.LastUsed,
			ExpiresAt:    k.ExpiresAt,
			CreatedAt:    k.CreatedAt,
		}
		if !k.SecretViewed {
			if secret, ok := h.keys.PendingSecret(k.KeyID); ok {
				views[i].PendingSecret = &secret
			}
		}
	}

	writeJSON(w, http.StatusOK, keysResponse{Success: true, Keys: views})
}

type issueKeyRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type issueKeyResponse struct {
	Success   bool   `json:"success"`
	KeyID     string `json:"key_id"`
	KeySecret string `json:"key_secret"`
	Name      string `json:"name"`
	Message   string `json:"message"`
}

// Issue generates a new API key for the user in the path. Admin only (the
// route carries an admin policy; the check here is a second line of defense
// for direct mounting). The plaintext secret appears in this response and in
// the owner's dashboard until acknowledged, and nowhere else, ever.
// POST /api/users/{userID}/api-keys
func (h *APIKeyHandler) Issue(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	if err := auth.RequireRole(principal, model.RoleAdmin); err != nil {
		writeError(w, http.StatusForbidden, "Unauthorized - only admins can generate API keys")
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	if _, err := h.store.GetUserByID(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	var req issueKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		req.Name = "Unnamed Key"
	}

	keyID, secret, err := h.keys.Issue(r.Context(), userID, req.Name, req.ExpiresAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate API key")
		return
	}

	writeJSON(w, http.StatusOK, issueKeyResponse{
		Success:   true,
		KeyID:     keyID,
		KeySecret: secret,
		Name:      req.Name,
		Message:   "API key generated successfully. The user will see the secret in their dashboard.",
	})
}

// loadOwnedKey fetches the key from the path parameter and enforces the
// ownership check. It writes the error response and returns nil when the
// caller should stop.
func (h *APIKeyHandler) loadOwnedKey(w http.ResponseWriter, r *http.Request) *model.APIKey {
	principal, _ := middleware.GetPrincipal(r.Context())

	key, err := h.store.GetAPIKeyByKeyID(r.Context(), chi.URLParam(r, "keyID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to load api key")
		}
		return nil
	}

	if err := auth.RequireOwner(principal, key.OwnerID); err != nil {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return nil
	}
	return key
}

// MarkViewed acknowledges that the owner has saved the key's secret. The
// pending plaintext is dropped and secret_viewed is persisted. Acknowledging
// twice is a no-op, not an error.
// POST /api/api-keys/{keyID}/mark-viewed
func (h *APIKeyHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	key := h.loadOwnedKey(w, r)
	if key == nil {
		return
	}

	if err := h.keys.AcknowledgeSecret(r.Context(), key.KeyID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark secret as viewed")
		return
	}

	writeMessage(w, "Secret marked as viewed")
}

// Regenerate replaces the key's secret, invalidating the old one immediately.
// The new secret shows in the owner's dashboard until acknowledged.
// POST /api/api-keys/{keyID}/regenerate-secret
func (h *APIKeyHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	key := h.loadOwnedKey(w, r)
	if key == nil {
		return
	}

	if _, err := h.keys.Regenerate(r.Context(), key.KeyID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to regenerate secret")
		return
	}

	writeMessage(w, "Secret regenerated successfully. View it in your dashboard before it's hidden.")
}

// Revoke deletes the key permanently. Admin only.
// DELETE /api/api-keys/{keyID}
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	if err := auth.RequireRole(principal, model.RoleAdmin); err != nil {
		writeError(w, http.StatusForbidden, "Unauthorized - only admins can revoke API keys")
		return
	}

	keyID := chi.URLParam(r, "keyID")
	if err := h.keys.Revoke(r.Context(), keyID); err != nil {
		if errors.Is(err, auth.ErrUnknownKey) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to revoke API key")
		return
	}

	writeMessage(w, "API key deleted successfully")
}
