package cart

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/obs"
)

// Handler exposes the session cart over HTTP.
type Handler struct {
	Carts    *Store
	Validate *validator.Validate
}

type cartView struct {
	Items []Line `json:"items"`
	Total string `json:"total"`
}

// Get handles GET /cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	h.render(w, c)
}

// AddItem handles POST /cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(item); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "item id and name are required", nil)
			return
		}
	}
	if item.Price.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "price must not be negative", nil)
		return
	}
	c.AddItem(item)
	countOp("add")
	h.render(w, c)
}

// UpdateItem handles PATCH /cart/items/{id}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	var body struct {
		Quantity int `json:"cantidad"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid quantity payload", nil)
		return
	}
	c.UpdateQuantity(chi.URLParam(r, "id"), body.Quantity)
	countOp("update")
	h.render(w, c)
}

// RemoveItem handles DELETE /cart/items/{id}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	c.RemoveItem(chi.URLParam(r, "id"))
	countOp("remove")
	h.render(w, c)
}

// Clear handles DELETE /cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessionCart(w, r)
	if !ok {
		return
	}
	c.Clear()
	countOp("clear")
	h.render(w, c)
}

func (h *Handler) sessionCart(w http.ResponseWriter, r *http.Request) (*Cart, bool) {
	if h.Carts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return nil, false
	}
	sid, ok := common.SessionID(r.Context())
	if !ok || sid == "" {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "browsing session missing", nil)
		return nil, false
	}
	return h.Carts.Get(sid), true
}

func (h *Handler) render(w http.ResponseWriter, c *Cart) {
	lines := c.Lines()
	if lines == nil {
		lines = []Line{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": cartView{Items: lines, Total: c.Total().String()},
	})
}

func countOp(op string) {
	if obs.CartOpsTotal == nil {
		return
	}
	obs.CartOpsTotal.WithLabelValues(op).Inc()
}
