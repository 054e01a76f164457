package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/obs"
)

type checkoutRequest struct {
	Nombre     string `json:"nombre" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Direccion  string `json:"direccion" validate:"required"`
	Telefono   string `json:"telefono"`
	MetodoPago string `json:"metodo_pago"`
}

type orderLine struct {
	ProductoID json.RawMessage `json:"producto_id"`
	Nombre     string          `json:"nombre"`
	Precio     json.Number     `json:"precio"`
	Cantidad   int             `json:"cantidad"`
}

// idRef renders a cart item id the way the backend stored it: numeric ids
// go back out as numbers, anything else as a string.
func idRef(id string) json.RawMessage {
	if json.Valid([]byte(id)) {
		var n json.Number
		if err := json.Unmarshal([]byte(id), &n); err == nil {
			return json.RawMessage(id)
		}
	}
	quoted, _ := json.Marshal(id)
	return quoted
}

type orderPayload struct {
	CompradorID   json.RawMessage `json:"comprador_id"`
	NombreCliente string          `json:"nombre_cliente"`
	EmailCliente  string          `json:"email_cliente"`
	Direccion     string          `json:"direccion"`
	Telefono      string          `json:"telefono,omitempty"`
	MetodoPago    string          `json:"metodo_pago,omitempty"`
	Total         json.Number     `json:"total"`
	Estado        string          `json:"estado"`
	Items         []orderLine     `json:"items"`
}

// Checkout handles POST /checkout: validate the buyer form, turn the session
// cart into an order, post it, and clear the cart only after the backend
// accepted it.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "no session", nil)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			countCheckout("rejected")
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "nombre, email and direccion are required", nil)
			return
		}
	}

	buyerID, err := h.buyerID(r)
	if err != nil {
		countCheckout("rejected")
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "buyer login required", nil)
		return
	}

	shopping := h.Carts.Get(sid)
	lines := shopping.Lines()
	if len(lines) == 0 {
		countCheckout("rejected")
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
		return
	}

	payload := orderPayload{
		CompradorID:   idRef(buyerID),
		NombreCliente: req.Nombre,
		EmailCliente:  req.Email,
		Direccion:     req.Direccion,
		Telefono:      req.Telefono,
		MetodoPago:    req.MetodoPago,
		Total:         json.Number(shopping.Total().String()),
		Estado:        "pendiente_entrega",
		Items:         make([]orderLine, 0, len(lines)),
	}
	for _, line := range lines {
		payload.Items = append(payload.Items, orderLine{
			ProductoID: idRef(line.ID),
			Nombre:     line.Name,
			Precio:     json.Number(line.Price.String()),
			Cantidad:   line.Quantity,
		})
	}

	var pedido map[string]any
	if err := h.API.PostJSON(r.Context(), h.API.TenantPath("/pedidos"), payload, &pedido); err != nil {
		countCheckout("error")
		backend.WriteError(w, err)
		return
	}

	shopping.Clear()
	countCheckout("ok")
	common.JSON(w, http.StatusCreated, map[string]any{"data": pedido})
}

// buyerID pulls the buyer reference out of the stored identity blob. Orders
// are keyed by the buyer's manual id, not the row id.
func (h *Handler) buyerID(r *http.Request) (string, error) {
	sid, ok := common.SessionID(r.Context())
	if !ok {
		return "", errors.New("storefront: no session")
	}
	return h.Identity.IdentityField(r.Context(), sid, "id_comprador")
}

func countCheckout(result string) {
	if obs.CheckoutTotal == nil {
		return
	}
	obs.CheckoutTotal.WithLabelValues(result).Inc()
}
