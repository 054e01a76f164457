package console

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/collection"
	"github.com/noah-isme/storefront-gateway/internal/common"
)

// Resource serves one console collection: paged listing with debounce-side
// search, create, update, delete, and the account-state toggle. All traffic
// goes through the shared controller so every mutation invalidates and
// refetches the cached page.
type Resource struct {
	Controller *collection.Controller
	PerPage    int
	MaxPerPage int
	Searches   *collection.Debouncer
	Logger     *zerolog.Logger
}

// Mount registers the resource routes on the given router.
func (res *Resource) Mount(r chi.Router) {
	r.Get("/", res.List)
	r.Post("/", res.Create)
	r.Put("/{id}", res.Update)
	r.Delete("/{id}", res.Delete)
	r.Put("/{id}/estado", res.SetState)
}

// List handles GET /?page=&limit=&q=.
func (res *Resource) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, res.PerPage)
	if res.MaxPerPage > 0 && perPage > res.MaxPerPage {
		perPage = res.MaxPerPage
	}
	if err := res.Controller.Load(r.Context(), page, perPage); err != nil {
		backend.WriteError(w, err)
		return
	}
	items, pagination := res.Controller.Snapshot()
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		items = res.Controller.Filter(q)
		if res.Searches != nil {
			res.Searches.Set(q)
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": pagination,
	})
}

// Create handles POST /.
func (res *Resource) Create(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	if err := res.Controller.Create(r.Context(), fields); err != nil {
		backend.WriteError(w, err)
		return
	}
	items, pagination := res.Controller.Snapshot()
	common.JSON(w, http.StatusCreated, map[string]any{
		"data":       items,
		"pagination": pagination,
	})
}

// Update handles PUT /{id}.
func (res *Resource) Update(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	if err := res.Controller.Update(r.Context(), chi.URLParam(r, "id"), fields); err != nil {
		backend.WriteError(w, err)
		return
	}
	items, pagination := res.Controller.Snapshot()
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": pagination,
	})
}

// Delete handles DELETE /{id}.
func (res *Resource) Delete(w http.ResponseWriter, r *http.Request) {
	if err := res.Controller.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		backend.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setStateRequest struct {
	Estado string `json:"estado"`
}

// SetState handles PUT /{id}/estado.
func (res *Resource) SetState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Estado) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "estado is required", nil)
		return
	}
	updated, err := res.Controller.ToggleState(r.Context(), chi.URLParam(r, "id"), req.Estado)
	if err != nil {
		backend.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return nil, false
	}
	return fields, true
}
