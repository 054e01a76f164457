package storefront

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/cart"
	"github.com/noah-isme/storefront-gateway/internal/collection"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/session"
)

// Handler serves the public shopper surface: store and catalog browsing plus
// checkout. Browse responses are cached read-through; checkout goes straight
// to the backend.
type Handler struct {
	API      *backend.Client
	Cache    *collection.Cache
	Carts    *cart.Store
	Identity *session.Store
	Renderer Renderer
	Validate *validator.Validate
	Logger   *zerolog.Logger
}

// Tiendas handles GET /tiendas.
func (h *Handler) Tiendas(w http.ResponseWriter, r *http.Request) {
	var tiendas []map[string]any
	if ok, err := h.Cache.GetJSON(r.Context(), "tiendas", &tiendas); err == nil && ok {
		common.JSON(w, http.StatusOK, map[string]any{"data": tiendas})
		return
	}
	if err := h.API.GetJSON(r.Context(), "/tiendas", nil, &tiendas); err != nil {
		backend.WriteError(w, err)
		return
	}
	h.cacheSet(r, "tiendas", tiendas)
	common.JSON(w, http.StatusOK, map[string]any{"data": tiendas})
}

// Categorias handles GET /categorias.
func (h *Handler) Categorias(w http.ResponseWriter, r *http.Request) {
	var categorias []map[string]any
	if ok, err := h.Cache.GetJSON(r.Context(), "categorias", &categorias); err == nil && ok {
		common.JSON(w, http.StatusOK, map[string]any{"data": categorias})
		return
	}
	if err := h.API.GetJSON(r.Context(), h.API.TenantPath("/categorias"), nil, &categorias); err != nil {
		backend.WriteError(w, err)
		return
	}
	h.cacheSet(r, "categorias", categorias)
	common.JSON(w, http.StatusOK, map[string]any{"data": categorias})
}

// Productos handles GET /productos.
func (h *Handler) Productos(w http.ResponseWriter, r *http.Request) {
	var productos []map[string]any
	if ok, err := h.Cache.GetJSON(r.Context(), "productos", &productos); err == nil && ok {
		common.JSON(w, http.StatusOK, map[string]any{"data": productos})
		return
	}
	if err := h.API.GetJSON(r.Context(), "/productos", nil, &productos); err != nil {
		backend.WriteError(w, err)
		return
	}
	h.cacheSet(r, "productos", productos)
	common.JSON(w, http.StatusOK, map[string]any{"data": productos})
}

// catalogView is a store page: the store record plus its vendor's products.
type catalogView struct {
	Tienda    map[string]any   `json:"tienda"`
	Productos []map[string]any `json:"productos"`
}

// Catalogo handles GET /tiendas/{slug}. The store record names its vendor;
// the vendor's product sub-collection fills the catalog.
func (h *Handler) Catalogo(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var view catalogView
	if ok, err := h.Cache.GetJSON(r.Context(), "tienda:"+slug, &view); err == nil && ok {
		common.JSON(w, http.StatusOK, map[string]any{"data": view})
		return
	}

	if err := h.API.GetJSON(r.Context(), "/tiendas/"+slug, nil, &view.Tienda); err != nil {
		backend.WriteError(w, err)
		return
	}
	vendorID := vendorRef(view.Tienda)
	if vendorID == "" {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "store has no vendor reference", nil)
		return
	}
	if err := h.API.GetJSON(r.Context(), "/vendedores/"+vendorID+"/productos", nil, &view.Productos); err != nil {
		backend.WriteError(w, err)
		return
	}
	h.cacheSet(r, "tienda:"+slug, view)
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) cacheSet(r *http.Request, name string, v any) {
	if err := h.Cache.SetJSON(r.Context(), name, v); err != nil && h.Logger != nil {
		h.Logger.Warn().Err(err).Str("view", name).Msg("storefront cache write failed")
	}
}

// vendorRef extracts the vendor id the store's product listing hangs off.
// Older tenants carry it as vendedor_id_manual, newer ones as vendedor_id.
func vendorRef(tienda map[string]any) string {
	for _, key := range []string{"vendedor_id_manual", "vendedor_id"} {
		if v, ok := tienda[key]; ok && v != nil {
			return numberString(v)
		}
	}
	return ""
}

func numberString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
