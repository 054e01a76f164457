package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/common"
)

// Cookies resolves the signed session cookie on every request and writes it
// back when a new session is minted.
type Cookies struct {
	Manager  Manager
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	Logger   *zerolog.Logger
}

// Middleware places the session id and actor into the request context. A
// request without a valid ticket gets a fresh guest session so carts work
// before login.
func (c *Cookies) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(c.Name); err == nil {
			sid, actor, parseErr := c.Manager.Parse(cookie.Value)
			if parseErr == nil {
				next.ServeHTTP(w, r.WithContext(common.WithSession(r.Context(), sid, actor)))
				return
			}
			if c.Logger != nil {
				c.Logger.Debug().Err(parseErr).Msg("session ticket rejected, minting a new one")
			}
		}
		sid := uuid.NewString()
		token, expiresAt, err := c.Manager.Issue(sid, ActorGuest)
		if err != nil {
			if c.Logger != nil {
				c.Logger.Error().Err(err).Msg("session ticket signing failed")
			}
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
			return
		}
		c.Set(w, token, expiresAt)
		next.ServeHTTP(w, r.WithContext(common.WithSession(r.Context(), sid, ActorGuest)))
	})
}

// Set writes the session cookie.
func (c *Cookies) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Domain:   c.Domain,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Clear expires the session cookie.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}
