package console

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/collection"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/obs"
)

// Consoles wires one Resource per entity. The administrator and platform
// user consoles are deliberately two independent resources with independent
// controllers, caches, and state.
type Consoles struct {
	API        *backend.Client
	Cache      *collection.Cache
	Logger     zerolog.Logger
	PerPage    int
	MaxPerPage int
	// Debounce is the quiet interval before a search term counts as
	// settled. Zero disables settled-search tracking.
	Debounce time.Duration
}

// Router builds the console routing tree.
func (c *Consoles) Router() (chi.Router, error) {
	r := chi.NewRouter()

	vendedores, err := c.resource(Vendedores())
	if err != nil {
		return nil, err
	}
	r.Route("/vendedores", func(sub chi.Router) {
		vendedores.Mount(sub)
		sub.Get("/{id}/productos", c.VendorProducts)
	})

	pedidos, err := c.resource(Pedidos())
	if err != nil {
		return nil, err
	}
	r.Route("/pedidos", func(sub chi.Router) {
		pedidos.Mount(sub)
		sub.Put("/{id}/entregar", c.markDelivered(pedidos))
	})

	for _, desc := range []collection.Descriptor{
		Compradores(),
		Administradores(),
		Usuarios(),
		Categorias(),
		Productos(),
	} {
		res, err := c.resource(desc)
		if err != nil {
			return nil, err
		}
		r.Route("/"+desc.Name, res.Mount)
	}
	return r, nil
}

func (c *Consoles) resource(desc collection.Descriptor) (*Resource, error) {
	ctrl, err := collection.NewController(collection.ControllerConfig{
		Descriptor: desc,
		API:        c.API,
		Cache:      c.Cache,
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}
	res := &Resource{
		Controller: ctrl,
		PerPage:    c.PerPage,
		MaxPerPage: c.MaxPerPage,
		Logger:     &c.Logger,
	}
	if c.Debounce > 0 {
		res.Searches = collection.NewDebouncer(c.Debounce)
		go drainSearches(desc.Name, res.Searches)
	}
	return res, nil
}

// drainSearches consumes settled search terms for the lifetime of the
// process. A burst of keystroke-driven queries yields one count.
func drainSearches(name string, deb *collection.Debouncer) {
	for range deb.C() {
		if obs.SearchesTotal != nil {
			obs.SearchesTotal.WithLabelValues(name).Inc()
		}
	}
}

// VendorProducts handles GET /vendedores/{id}/productos. The controller is
// per request because the collection path depends on the vendor id; cache
// pages are still shared across requests via the vendor-scoped cache name.
func (c *Consoles) VendorProducts(w http.ResponseWriter, r *http.Request) {
	ctrl, err := collection.NewController(collection.ControllerConfig{
		Descriptor: VendedorProductos(chi.URLParam(r, "id")),
		API:        c.API,
		Cache:      c.Cache,
		Logger:     c.Logger,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	res := &Resource{Controller: ctrl, PerPage: c.PerPage, MaxPerPage: c.MaxPerPage, Logger: &c.Logger}
	res.List(w, r)
}

// markDelivered flips an order to entregado through the shared controller so
// the cached order pages refresh.
func (c *Consoles) markDelivered(pedidos *Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := pedidos.Controller.Update(r.Context(), id, map[string]any{"estado": "entregado"}); err != nil {
			backend.WriteError(w, err)
			return
		}
		items, pagination := pedidos.Controller.Snapshot()
		common.JSON(w, http.StatusOK, map[string]any{
			"data":       items,
			"pagination": pagination,
		})
	}
}
