package storefront

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/common"
)

// storeForm is the vendor-facing store configuration payload. Slug and the
// business name are mandatory; the rest mirrors what the storefront renders.
type storeForm struct {
	NombreNegocio string `json:"nombre_negocio" validate:"required"`
	Descripcion   string `json:"descripcion"`
	ColorPrimario string `json:"color_primario"`
	LogoURL       string `json:"logo_url"`
	Slug          string `json:"slug" validate:"required"`
}

// MyStore handles GET /mi-tienda: the logged-in vendor's own store record.
// A backend 404 passes through untouched; the client reads it as "no store
// yet, offer the create form".
func (h *Handler) MyStore(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.vendorID(w, r)
	if !ok {
		return
	}
	var tienda map[string]any
	if err := h.API.GetJSON(r.Context(), "/tiendas/vendedor/"+vendorID, nil, &tienda); err != nil {
		backend.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tienda})
}

// SaveStore handles PUT /mi-tienda: create the vendor's store when none
// exists, update it otherwise. The backend owns slug uniqueness and the
// one-store-per-vendor rule; its rejections pass through.
func (h *Handler) SaveStore(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := h.vendorID(w, r)
	if !ok {
		return
	}

	var form storeForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(form); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "nombre_negocio and slug are required", nil)
			return
		}
	}

	payload := map[string]any{
		"nombre_negocio": form.NombreNegocio,
		"descripcion":    form.Descripcion,
		"color_primario": form.ColorPrimario,
		"slug":           form.Slug,
	}
	// An empty logo clears the stored one, matching the update contract of
	// the tienda endpoints.
	if strings.TrimSpace(form.LogoURL) == "" {
		payload["logo_url"] = nil
	} else {
		payload["logo_url"] = form.LogoURL
	}

	var existing map[string]any
	err := h.API.GetJSON(r.Context(), "/tiendas/vendedor/"+vendorID, nil, &existing)
	creating := backend.IsNotFound(err)
	if err != nil && !creating {
		backend.WriteError(w, err)
		return
	}

	var tienda map[string]any
	if creating {
		payload["id_vendedor"] = idRef(vendorID)
		err = h.API.PostJSON(r.Context(), "/tiendas/", payload, &tienda)
	} else {
		err = h.API.PutJSON(r.Context(), "/tiendas/vendedor/"+vendorID, payload, &tienda)
	}
	if err != nil {
		backend.WriteError(w, err)
		return
	}

	h.dropStoreViews(r, form.Slug, existing)

	status := http.StatusOK
	if creating {
		status = http.StatusCreated
	}
	common.JSON(w, status, map[string]any{"data": tienda})
}

// vendorID resolves the manual vendor id from the session identity. Store
// records key on id_vendedor, not the vendor row id.
func (h *Handler) vendorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "no session", nil)
		return "", false
	}
	vendorID, err := h.Identity.IdentityField(r.Context(), sid, "id_vendedor")
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "vendor login required", nil)
		return "", false
	}
	return vendorID, true
}

// dropStoreViews expires the cached listings a saved store invalidates: the
// store index, the new slug's catalog, and the old slug's when it changed.
func (h *Handler) dropStoreViews(r *http.Request, slug string, existing map[string]any) {
	names := []string{"tiendas", "tienda:" + slug}
	if old := stringField(existing, "slug"); old != "" && old != slug {
		names = append(names, "tienda:"+old)
	}
	if err := h.Cache.DropJSON(r.Context(), names...); err != nil && h.Logger != nil {
		h.Logger.Warn().Err(err).Msg("drop store views")
	}
}
