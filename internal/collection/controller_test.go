package collection_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/collection"
	"github.com/noah-isme/storefront-gateway/internal/common"
)

var vendorDescriptor = collection.Descriptor{
	Name: "vendedores",
	Path: "/vendedores",
	Fields: []collection.Field{
		{Key: "nombre", Label: "Nombre", Required: true},
		{Key: "email", Label: "Email", Required: true},
		{Key: "password", Label: "Password", Required: true, Secret: true},
		{Key: "empresa", Label: "Empresa"},
	},
	SearchKeys: []string{"nombre", "email"},
	StateKey:   "estado_cuenta",
}

// fakeEntityServer is an in-memory stand-in for one backend collection.
type fakeEntityServer struct {
	mu       sync.Mutex
	records  []map[string]any
	nextID   int
	listHits int
	lastPut  map[string]any
	failList bool
}

func newFakeEntityServer(seed ...map[string]any) *fakeEntityServer {
	s := &fakeEntityServer{nextID: 1}
	for _, rec := range seed {
		rec["id"] = float64(s.nextID)
		s.nextID++
		s.records = append(s.records, rec)
	}
	return s
}

func (s *fakeEntityServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet:
			s.listHits++
			if s.failList {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"detail": "upstream exploded"}`))
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			end := offset + limit
			if offset > len(s.records) {
				offset = len(s.records)
			}
			if end > len(s.records) {
				end = len(s.records)
			}
			_ = json.NewEncoder(w).Encode(s.records[offset:end])
		case r.Method == http.MethodPost:
			var rec map[string]any
			_ = json.NewDecoder(r.Body).Decode(&rec)
			if rec["nombre"] == "duplicada" {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte(`{"detail": "nombre ya existe"}`))
				return
			}
			rec["id"] = float64(s.nextID)
			s.nextID++
			s.records = append(s.records, rec)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(rec)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/estado"):
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/vendedores/"), "/estado")
			for _, rec := range s.records {
				if strconv.Itoa(int(rec["id"].(float64))) == id {
					rec["estado_cuenta"] = body["estado_cuenta"]
					_ = json.NewEncoder(w).Encode(rec)
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			s.lastPut = body
			_ = json.NewEncoder(w).Encode(body)
		case r.Method == http.MethodDelete:
			id := strings.TrimPrefix(r.URL.Path, "/vendedores/")
			for i, rec := range s.records {
				if strconv.Itoa(int(rec["id"].(float64))) == id {
					s.records = append(s.records[:i], s.records[i+1:]...)
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newController(t *testing.T, srv *fakeEntityServer) (*collection.Controller, *fakeEntityServer) {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := backend.New(ts.URL, "", time.Second, zerolog.Nop())
	ctrl, err := collection.NewController(collection.ControllerConfig{
		Descriptor: vendorDescriptor,
		API:        api,
		Cache:      collection.NewCache(rdb, time.Minute),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return ctrl, srv
}

func TestLoadSnapshotsAndCaches(t *testing.T) {
	ctrl, srv := newController(t, newFakeEntityServer(
		map[string]any{"nombre": "Ana", "email": "ana@tienda.mx"},
		map[string]any{"nombre": "Luis", "email": "luis@tienda.mx"},
	))

	require.NoError(t, ctrl.Load(context.Background(), 1, 10))
	require.Equal(t, collection.StateLoaded, ctrl.State())

	items, page := ctrl.Snapshot()
	require.Len(t, items, 2)
	require.Equal(t, 1, page.Page)
	require.False(t, page.HasNext)

	// Second load of the same page is served from cache.
	require.NoError(t, ctrl.Load(context.Background(), 1, 10))
	require.Equal(t, 1, srv.listHits)
}

func TestLoadFailureIsADistinguishableState(t *testing.T) {
	srv := newFakeEntityServer()
	srv.failList = true
	ctrl, _ := newController(t, srv)

	err := ctrl.Load(context.Background(), 1, 10)
	require.Error(t, err)
	require.Equal(t, collection.StateLoadError, ctrl.State())
	require.Contains(t, ctrl.LastError(), "upstream exploded")
	require.Equal(t, 1, srv.listHits)
}

func TestCreateInvalidatesAndRefetches(t *testing.T) {
	ctrl, srv := newController(t, newFakeEntityServer(
		map[string]any{"nombre": "Ana", "email": "ana@tienda.mx"},
	))
	require.NoError(t, ctrl.Load(context.Background(), 1, 10))

	err := ctrl.Create(context.Background(), map[string]any{
		"nombre":   "Marta",
		"email":    "marta@tienda.mx",
		"password": "s3creta",
	})
	require.NoError(t, err)
	require.Equal(t, collection.StateLoaded, ctrl.State())

	items, _ := ctrl.Snapshot()
	require.Len(t, items, 2)
	// Initial load plus the post-create refetch; the cache version bump
	// forced the second trip to the backend.
	require.Equal(t, 2, srv.listHits)
}

func TestCreateValidatesBeforeAnyNetworkCall(t *testing.T) {
	ctrl, srv := newController(t, newFakeEntityServer())
	err := ctrl.Create(context.Background(), map[string]any{
		"nombre": "  ",
		"email":  "x@y.z",
	})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
	require.Contains(t, err.Error(), "Nombre is required")
	require.Equal(t, 0, srv.listHits)
}

func TestCreateRejectionKeepsPriorSnapshot(t *testing.T) {
	ctrl, _ := newController(t, newFakeEntityServer(
		map[string]any{"nombre": "Ana", "email": "ana@tienda.mx"},
	))
	require.NoError(t, ctrl.Load(context.Background(), 1, 10))

	err := ctrl.Create(context.Background(), map[string]any{
		"nombre":   "duplicada",
		"email":    "dup@tienda.mx",
		"password": "x",
	})
	require.Error(t, err)
	require.Equal(t, collection.StateMutateError, ctrl.State())
	require.Contains(t, ctrl.LastError(), "nombre ya existe")

	items, _ := ctrl.Snapshot()
	require.Len(t, items, 1)
}

func TestUpdateOmitsEmptySecretFields(t *testing.T) {
	ctrl, srv := newController(t, newFakeEntityServer(
		map[string]any{"nombre": "Ana", "email": "ana@tienda.mx"},
	))
	require.NoError(t, ctrl.Load(context.Background(), 1, 10))

	err := ctrl.Update(context.Background(), "1", map[string]any{
		"nombre":   "Ana María",
		"email":    "ana@tienda.mx",
		"password": "",
	})
	require.NoError(t, err)
	_, sent := srv.lastPut["password"]
	require.False(t, sent, "empty password must be omitted, not sent blank")
	require.Equal(t, "Ana María", srv.lastPut["nombre"])

	err = ctrl.Update(context.Background(), "1", map[string]any{
		"password": "nueva-clave",
	})
	require.NoError(t, err)
	require.Equal(t, "nueva-clave", srv.lastPut["password"])
}

func TestDeleteRefetches(t *testing.T) {
	ctrl, srv := newController(t, newFakeEntityServer(
		map[string]any{"nombre": "Ana", "email": "ana@tienda.mx"},
		map[string]any{"nombre": "Luis", "email": "luis@tienda.mx"},
	))
	require.NoError(t, ctrl.Load(context.Background(), 1, 10))

	require.NoError(t, ctrl.Delete(context.Background(), "1"))
	items, _ := ctrl.Snapshot()
	require.Len(t, items, 1)
	require.Equal(t, "Luis", items[0]["nombre"])
	require.Equal(t, 2, srv.listHits)
}

func TestToggleStateReturnsUpdatedRecord(t *testing.T) {
	ctrl, _ := newController(t, newFakeEntityServer(
		map[string]any{"nombre": "Ana", "email": "ana@tienda.mx", "estado_cuenta": "activo"},
	))
	require.NoError(t, ctrl.Load(context.Background(), 1, 10))

	updated, err := ctrl.ToggleState(context.Background(), "1", "bloqueado")
	require.NoError(t, err)
	require.Equal(t, "bloqueado", updated["estado_cuenta"])
}

func TestFilterIsCaseInsensitiveOverSearchKeys(t *testing.T) {
	ctrl, _ := newController(t, newFakeEntityServer(
		map[string]any{"nombre": "Ana Torres", "email": "ana@tienda.mx", "empresa": "Rayo"},
		map[string]any{"nombre": "Luis Vega", "email": "luis@tienda.mx", "empresa": "Trueno"},
	))
	require.NoError(t, ctrl.Load(context.Background(), 1, 10))

	require.Len(t, ctrl.Filter("TORRES"), 1)
	require.Len(t, ctrl.Filter("tienda.MX"), 2)
	require.Len(t, ctrl.Filter(""), 2)
	// "empresa" is not a search key, so matches there do not count.
	require.Empty(t, ctrl.Filter("rayo"))
}
