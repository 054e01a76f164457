package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/cart"
	"github.com/noah-isme/storefront-gateway/internal/common"
)

// Handler exposes login, identity, and logout endpoints. Logins proxy to the
// platform's per-actor endpoints and keep whatever blob the platform returns.
type Handler struct {
	API      *backend.Client
	Identity *Store
	Cookies  *Cookies
	Carts    *cart.Store
	Validate *validator.Validate
	Logger   *zerolog.Logger
}

var loginPaths = map[string]string{
	"vendedor":      "/vendedores/login",
	"comprador":     "/compradores/login",
	"administrador": "/administradores/login",
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/session/login/{actor}. The session id is kept
// so a cart filled as a guest survives the login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	actor := strings.ToLower(chi.URLParam(r, "actor"))
	path, ok := loginPaths[actor]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown account type", nil)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "email and password are required", nil)
			return
		}
	}
	var blob json.RawMessage
	if err := h.API.PostJSON(r.Context(), path, req, &blob); err != nil {
		backend.WriteError(w, err)
		return
	}
	sid, ok := common.SessionID(r.Context())
	if !ok || sid == "" {
		sid = uuid.NewString()
	}
	if err := h.Identity.SaveIdentity(r.Context(), sid, blob); err != nil {
		if h.Logger != nil {
			h.Logger.Error().Err(err).Msg("identity save failed")
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	token, expiresAt, err := h.Cookies.Manager.Issue(sid, actor)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	h.Cookies.Set(w, token, expiresAt)
	common.JSON(w, http.StatusOK, map[string]any{"data": blob})
}

// Me handles GET /api/v1/session/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sid, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "no session", nil)
		return
	}
	blob, err := h.Identity.Identity(r.Context(), sid)
	if errors.Is(err, ErrNoIdentity) {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "not logged in", nil)
		return
	}
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": blob})
}

// Logout handles POST /api/v1/session/logout. The identity blob and cart are
// discarded and the caller is handed a fresh guest session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid, ok := common.SessionID(r.Context()); ok {
		if err := h.Identity.ClearIdentity(r.Context(), sid); err != nil && h.Logger != nil {
			h.Logger.Warn().Err(err).Msg("identity clear failed")
		}
		if h.Carts != nil {
			h.Carts.Drop(sid)
		}
	}
	token, expiresAt, err := h.Cookies.Manager.Issue(uuid.NewString(), ActorGuest)
	if err != nil {
		h.Cookies.Clear(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.Cookies.Set(w, token, expiresAt)
	w.WriteHeader(http.StatusNoContent)
}
