package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/common"
)

// Renderer turns a component name and property bag into a rendered page
// payload. The page-builder client satisfies it.
type Renderer interface {
	Render(ctx context.Context, component string, props map[string]any) (json.RawMessage, error)
}

const defaultPrimaryColor = "#0080ff"

// StorePage handles GET /tienda/{slug}: the no-code rendered storefront
// page. The property bag mirrors what the store designer wired up in the
// builder: name, description, brand color, logo, a link to the full catalog,
// and the featured product images.
func (h *Handler) StorePage(w http.ResponseWriter, r *http.Request) {
	if h.Renderer == nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "page rendering is not enabled", nil)
		return
	}
	slug := chi.URLParam(r, "slug")

	var tienda map[string]any
	if err := h.API.GetJSON(r.Context(), "/tiendas/"+slug, nil, &tienda); err != nil {
		backend.WriteError(w, err)
		return
	}
	vendorID := vendorRef(tienda)
	if vendorID == "" {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "store has no vendor reference", nil)
		return
	}
	var productos []map[string]any
	if err := h.API.GetJSON(r.Context(), "/vendedores/"+vendorID+"/productos", nil, &productos); err != nil {
		backend.WriteError(w, err)
		return
	}

	props := map[string]any{
		"tiendaNombre":        stringField(tienda, "nombre_negocio"),
		"tiendaDescripcion":   stringField(tienda, "descripcion"),
		"tiendaColorPrimario": defaultPrimaryColor,
		"tiendaProductosUrl":  "/vendedores/" + vendorID + "/productos",
		"productosDestacados": featuredImages(productos),
	}
	if color := stringField(tienda, "color_primario"); color != "" {
		props["tiendaColorPrimario"] = color
	}
	if logo := stringField(tienda, "logo_url"); logo != "" {
		props["tiendaLogoUrl"] = logo
	}

	rendered, err := h.Renderer.Render(r.Context(), "tienda", props)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error().Err(err).Str("slug", slug).Msg("store page render failed")
		}
		common.JSONError(w, http.StatusBadGateway, "RENDERER", "could not render store page", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rendered})
}

// featuredImages selects featured products that carry a usable image and
// reduces them to the {src} objects the builder component expects.
func featuredImages(productos []map[string]any) []map[string]string {
	images := make([]map[string]string, 0, len(productos))
	for _, p := range productos {
		featured, _ := p["destacado"].(bool)
		src := strings.TrimSpace(stringField(p, "imagen_url"))
		if featured && src != "" {
			images = append(images, map[string]string{"src": src})
		}
	}
	return images
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
