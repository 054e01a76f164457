package ratelimit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront-gateway/internal/common"
)

// LoginKey buckets login attempts by client address and the actor kind being
// tried, so hammering the vendor login does not lock out buyer logins from
// the same address.
func LoginKey(r *http.Request) string {
	return "login:" + chi.URLParam(r, "actor") + ":" + common.ClientIP(r)
}

// CheckoutKey buckets checkout attempts by session.
func CheckoutKey(r *http.Request) string {
	if sid, ok := common.SessionID(r.Context()); ok {
		return "checkout:" + sid
	}
	return "checkout:" + common.ClientIP(r)
}

// UploadKey buckets uploads by session.
func UploadKey(r *http.Request) string {
	if sid, ok := common.SessionID(r.Context()); ok {
		return "upload:" + sid
	}
	return "upload:" + common.ClientIP(r)
}
