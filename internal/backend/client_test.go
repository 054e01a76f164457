package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/backend"
)

func newTestClient(t *testing.T, handler http.Handler) (*backend.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.New(srv.URL, "acme", 2*time.Second, zerolog.Nop()), srv
}

func TestListAcceptsBareArray(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vendedores", r.URL.Path)
		require.Equal(t, "50", r.URL.Query().Get("limit"))
		require.Equal(t, "0", r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "nombre": "Ana"}, {"id": 2, "nombre": "Luis"}]`))
	}))

	query := url.Values{"limit": {"50"}, "offset": {"0"}}
	result, err := client.List(context.Background(), "/vendedores", query)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, -1, result.Total)
	require.Equal(t, "Ana", result.Items[0]["nombre"])
}

func TestListAcceptsItemsEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [{"id": 7}], "total": 23}`))
	}))

	result, err := client.List(context.Background(), "/productos", nil)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, 23, result.Total)
}

func TestStringDetailIsSurfacedVerbatim(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail": "email ya registrado"}`))
	}))

	err := client.PostJSON(context.Background(), "/vendedores", map[string]any{"email": "a@b.c"}, nil)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "email ya registrado", apiErr.Detail)
}

func TestValidationIssuesAreFlattened(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail": [
			{"loc": ["body", "email"], "msg": "field required"},
			{"loc": ["body", "precio"], "msg": "value is not a valid float"}
		]}`))
	}))

	err := client.PostJSON(context.Background(), "/productos", map[string]any{}, nil)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "body.email: field required | body.precio: value is not a valid float", apiErr.Detail)
}

func TestNetworkFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := backend.New(srv.URL, "acme", time.Second, zerolog.Nop())

	err := client.GetJSON(context.Background(), "/vendedores", nil, nil)
	require.ErrorIs(t, err, backend.ErrUnreachable)
	var apiErr *backend.APIError
	require.False(t, errors.As(err, &apiErr))
}

func TestToggleStateFallsBackToPatchOnce(t *testing.T) {
	var puts, patches atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			puts.Add(1)
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodPatch:
			patches.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 4, "estado_cuenta": "bloqueado"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	var updated map[string]any
	err := client.ToggleState(context.Background(), "/vendedores/4/estado", map[string]any{"estado_cuenta": "bloqueado"}, &updated)
	require.NoError(t, err)
	require.Equal(t, int32(1), puts.Load())
	require.Equal(t, int32(1), patches.Load())
	require.Equal(t, "bloqueado", updated["estado_cuenta"])
}

func TestToggleStateReportsFailureAfterSingleFallback(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail": "cuenta protegida"}`))
	}))

	err := client.ToggleState(context.Background(), "/compradores/9/estado", map[string]any{"estado_cuenta": "activo"}, nil)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "cuenta protegida", apiErr.Detail)
	require.Equal(t, int32(2), requests.Load())
}

func TestToggleStateDoesNotFallBackOnPlainRejection(t *testing.T) {
	var requests atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "estado desconocido"}`))
	}))

	err := client.ToggleState(context.Background(), "/vendedores/4/estado", map[string]any{"estado_cuenta": "???"}, nil)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, int32(1), requests.Load())
}

func TestTenantPath(t *testing.T) {
	client := backend.New("http://backend", "acme", time.Second, zerolog.Nop())
	require.Equal(t, "/tenants/acme/vendedores", client.TenantPath("/vendedores"))

	bare := backend.New("http://backend", "", time.Second, zerolog.Nop())
	require.Equal(t, "/vendedores", bare.TenantPath("/vendedores"))
}
