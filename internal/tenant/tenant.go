package tenant

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const tenantContextKey contextKey = "tenant.id"

// Pinned stamps a single configured tenant identifier onto every request.
// The gateway fronts exactly one tenant of the platform; per-request tenant
// resolution lives server-side.
type Pinned struct {
	ID string
}

// Middleware injects the pinned tenant into the context passed downstream.
func (p Pinned) Middleware(next http.Handler) http.Handler {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		next.ServeHTTP(w, req.WithContext(With(req.Context(), id)))
	})
}

// With stores the tenant identifier inside the context.
func With(ctx context.Context, tenantID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// From extracts the tenant identifier from the context if available.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenantID, ok := ctx.Value(tenantContextKey).(string)
	if !ok {
		return "", false
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", false
	}
	return tenantID, true
}

// PrefixKey creates a namespaced cache key per tenant id.
func PrefixKey(tenantID, key string) string {
	if tenantID == "" {
		return key
	}
	return tenantID + ":" + key
}

// Key prefixes the given cache key with the tenant bound to the context.
func Key(ctx context.Context, base string) string {
	id, ok := From(ctx)
	if !ok {
		return base
	}
	return PrefixKey(id, base)
}
