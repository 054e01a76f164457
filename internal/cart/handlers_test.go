package cart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/cart"
	"github.com/noah-isme/storefront-gateway/internal/common"
)

type cartResponse struct {
	Data struct {
		Items []cart.Line `json:"items"`
		Total string      `json:"total"`
	} `json:"data"`
}

func newCartRouter(t *testing.T) (*chi.Mux, *cart.Store) {
	t.Helper()
	store := cart.NewStore(time.Hour)
	handler := &cart.Handler{Carts: store, Validate: validator.New()}

	r := chi.NewRouter()
	r.Get("/cart", handler.Get)
	r.Delete("/cart", handler.Clear)
	r.Post("/cart/items", handler.AddItem)
	r.Patch("/cart/items/{id}", handler.UpdateItem)
	r.Delete("/cart/items/{id}", handler.RemoveItem)
	return r, store
}

func doCart(t *testing.T, r http.Handler, method, target, body, session string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if session != "" {
		req = req.WithContext(common.WithSession(context.Background(), session, "comprador"))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCartRoundTrip(t *testing.T) {
	r, _ := newCartRouter(t)

	rec := doCart(t, r, http.MethodPost, "/cart/items", `{"id":"7","nombre":"Teclado","precio":"10"}`, "s1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doCart(t, r, http.MethodPost, "/cart/items", `{"id":"7","nombre":"Teclado","precio":"10"}`, "s1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doCart(t, r, http.MethodPost, "/cart/items", `{"id":"9","nombre":"Mouse","precio":"5"}`, "s1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 2)
	require.Equal(t, 2, resp.Data.Items[0].Quantity)
	require.Equal(t, "25", resp.Data.Total)
}

func TestCartQuantityPatchAndRemove(t *testing.T) {
	r, _ := newCartRouter(t)
	doCart(t, r, http.MethodPost, "/cart/items", `{"id":"7","nombre":"Teclado","precio":"10"}`, "s1")

	rec := doCart(t, r, http.MethodPatch, "/cart/items/7", `{"cantidad":3}`, "s1")
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Data.Items[0].Quantity)

	rec = doCart(t, r, http.MethodPatch, "/cart/items/7", `{"cantidad":0}`, "s1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Data.Items)
	require.Equal(t, "0", resp.Data.Total)
}

func TestCartClear(t *testing.T) {
	r, _ := newCartRouter(t)
	doCart(t, r, http.MethodPost, "/cart/items", `{"id":"7","nombre":"Teclado","precio":"10"}`, "s1")

	rec := doCart(t, r, http.MethodDelete, "/cart", "", "s1")
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Data.Items)
}

func TestCartRejectsInvalidItem(t *testing.T) {
	r, _ := newCartRouter(t)
	rec := doCart(t, r, http.MethodPost, "/cart/items", `{"nombre":"sin id"}`, "s1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doCart(t, r, http.MethodPost, "/cart/items", `{"id":"1","nombre":"X","precio":"-4"}`, "s1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRequiresSession(t *testing.T) {
	r, _ := newCartRouter(t)
	rec := doCart(t, r, http.MethodGet, "/cart", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartsAreSessionScoped(t *testing.T) {
	r, _ := newCartRouter(t)
	doCart(t, r, http.MethodPost, "/cart/items", `{"id":"7","nombre":"Teclado","precio":"10"}`, "alice")

	rec := doCart(t, r, http.MethodGet, "/cart", "", "bob")
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Data.Items)
}
