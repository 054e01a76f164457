package storefront

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/collection"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/session"
)

type storeConfigFixture struct {
	router   *chi.Mux
	identity *session.Store

	mu         sync.Mutex
	hasStore   bool
	listGET    int
	lastCreate map[string]any
	lastUpdate map[string]any
	updatePath string
	slugTaken  bool
}

func newStoreConfigFixture(t *testing.T) *storeConfigFixture {
	t.Helper()

	fixture := &storeConfigFixture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.mu.Lock()
		defer fixture.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tiendas":
			fixture.listGET++
			_, _ = w.Write([]byte(`[{"id": 1, "slug": "acme", "nombre_negocio": "Acme Hogar"}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/tiendas/vendedor/7":
			if !fixture.hasStore {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"detail": "El vendedor no tiene tienda."}`))
				return
			}
			_, _ = w.Write([]byte(`{"id": 1, "slug": "acme", "nombre_negocio": "Acme Hogar", "color_primario": "#4f46e5", "vendedor_id_manual": 7}`))
		case r.Method == http.MethodPost && r.URL.Path == "/tiendas/":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			if fixture.slugTaken {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail": "El slug ya está en uso, elija otro."}`))
				return
			}
			fixture.lastCreate = payload
			fixture.hasStore = true
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 1, "slug": "acme", "nombre_negocio": "Acme Hogar", "vendedor_id_manual": 7}`))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/tiendas/vendedor/"):
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			fixture.lastUpdate = payload
			fixture.updatePath = r.URL.Path
			_, _ = w.Write([]byte(`{"id": 1, "slug": "acme-renovada", "nombre_negocio": "Acme Renovada", "vendedor_id_manual": 7}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	logger := zerolog.Nop()
	fixture.identity = session.NewStore(client, time.Hour)

	handler := &Handler{
		API:      backend.New(server.URL, "t1", 2*time.Second, logger),
		Cache:    collection.NewCache(client, time.Minute),
		Identity: fixture.identity,
		Validate: validator.New(),
		Logger:   &logger,
	}

	fixture.router = chi.NewRouter()
	fixture.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(common.WithSession(r.Context(), "sess-1", "vendedor")))
		})
	})
	fixture.router.Get("/mi-tienda", handler.MyStore)
	fixture.router.Put("/mi-tienda", handler.SaveStore)
	fixture.router.Get("/tiendas", handler.Tiendas)
	return fixture
}

func (f *storeConfigFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func loginVendor(t *testing.T, f *storeConfigFixture) {
	t.Helper()
	blob := json.RawMessage(`{"id": 2, "id_vendedor": 7, "nombre": "Marta"}`)
	require.NoError(t, f.identity.SaveIdentity(t.Context(), "sess-1", blob))
}

func TestMyStoreReturnsVendorStore(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	fixture.hasStore = true
	loginVendor(t, fixture)

	rec := fixture.do(t, http.MethodGet, "/mi-tienda", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "acme", resp.Data["slug"])
	require.Equal(t, "Acme Hogar", resp.Data["nombre_negocio"])
}

func TestMyStoreNotFoundPassesThrough(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	loginVendor(t, fixture)

	rec := fixture.do(t, http.MethodGet, "/mi-tienda", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "El vendedor no tiene tienda")
}

func TestSaveStoreCreatesWhenVendorHasNone(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	loginVendor(t, fixture)

	rec := fixture.do(t, http.MethodPut, "/mi-tienda",
		`{"nombre_negocio": "Acme Hogar", "descripcion": "Todo para la casa", "color_primario": "#4f46e5", "logo_url": "", "slug": "acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	fixture.mu.Lock()
	created := fixture.lastCreate
	fixture.mu.Unlock()
	require.NotNil(t, created)
	require.Equal(t, float64(7), created["id_vendedor"])
	require.Equal(t, "Acme Hogar", created["nombre_negocio"])
	require.Equal(t, "acme", created["slug"])

	logo, present := created["logo_url"]
	require.True(t, present)
	require.Nil(t, logo)
}

func TestSaveStoreUpdatesExisting(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	fixture.hasStore = true
	loginVendor(t, fixture)

	rec := fixture.do(t, http.MethodPut, "/mi-tienda",
		`{"nombre_negocio": "Acme Renovada", "slug": "acme-renovada", "logo_url": "https://cdn.example.test/logo.png"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	fixture.mu.Lock()
	updated := fixture.lastUpdate
	path := fixture.updatePath
	fixture.mu.Unlock()
	require.Equal(t, "/tiendas/vendedor/7", path)
	require.NotContains(t, updated, "id_vendedor")
	require.Equal(t, "https://cdn.example.test/logo.png", updated["logo_url"])
}

func TestSaveStoreRequiresVendorIdentity(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	blob := json.RawMessage(`{"id": 3, "id_comprador": 42, "nombre": "Rosa"}`)
	require.NoError(t, fixture.identity.SaveIdentity(t.Context(), "sess-1", blob))

	rec := fixture.do(t, http.MethodPut, "/mi-tienda",
		`{"nombre_negocio": "Acme", "slug": "acme"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "vendor login required")
}

func TestSaveStoreValidatesForm(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	loginVendor(t, fixture)

	rec := fixture.do(t, http.MethodPut, "/mi-tienda", `{"descripcion": "sin nombre ni slug"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION")

	fixture.mu.Lock()
	defer fixture.mu.Unlock()
	require.Nil(t, fixture.lastCreate)
}

func TestSaveStoreSlugConflictPassesThrough(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	fixture.slugTaken = true
	loginVendor(t, fixture)

	rec := fixture.do(t, http.MethodPut, "/mi-tienda",
		`{"nombre_negocio": "Acme", "slug": "acme"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "El slug ya est")
}

func TestSaveStoreDropsCachedStoreList(t *testing.T) {
	fixture := newStoreConfigFixture(t)
	loginVendor(t, fixture)

	first := fixture.do(t, http.MethodGet, "/tiendas", "")
	require.Equal(t, http.StatusOK, first.Code)
	second := fixture.do(t, http.MethodGet, "/tiendas", "")
	require.Equal(t, http.StatusOK, second.Code)

	rec := fixture.do(t, http.MethodPut, "/mi-tienda",
		`{"nombre_negocio": "Acme", "slug": "acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	third := fixture.do(t, http.MethodGet, "/tiendas", "")
	require.Equal(t, http.StatusOK, third.Code)

	fixture.mu.Lock()
	defer fixture.mu.Unlock()
	require.Equal(t, 2, fixture.listGET)
}
