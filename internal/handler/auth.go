package handler

import (
	"errors"
	"net/http"

	"github.com/skycastd/skycast/internal/auth"
	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/server/middleware"
	"github.com/skycastd/skycast/internal/store"
)

// AuthHandler serves account registration, login, and identity echo.
type AuthHandler struct {
	store    *store.Store
	verifier *auth.Verifier
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(st *store.Store, verifier *auth.Verifier) *AuthHandler {
	return &AuthHandler{store: st, verifier: verifier}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Success bool       `json:"success"`
	User    model.User `json:"user"`
}

// Register creates a new user account. New accounts always get the "user"
// role; promotion to admin is an operator action.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Username already taken")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: *user})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies a username/password pair. Authentication is stateless:
// clients keep sending Basic credentials on every request, so this endpoint
// exists only as an explicit credential check for dashboards.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.verifier.VerifyPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

type meResponse struct {
	Success    bool       `json:"success"`
	User       model.User `json:"user"`
	AuthMethod string     `json:"auth_method"`
}

// Me echoes the resolved principal: who the caller is and which credential
// scheme proved it.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		Success:    true,
		User:       principal.User,
		AuthMethod: string(principal.Method),
	})
}
