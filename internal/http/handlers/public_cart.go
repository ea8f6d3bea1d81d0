package handlers

import (
	"encoding/json"
	"net/http"

	"dapoer-buffet-services/internal/cart"
	"dapoer-buffet-services/internal/middleware"
	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func cartPayload(c *cart.Cart) map[string]any {
	totals := c.Totals()
	lines := c.Lines()
	items := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		items = append(items, map[string]any{
			"productId": line.ProductID,
			"name":      line.Name,
			"unitPrice": line.UnitPrice.String(),
			"quantity":  line.Quantity,
			"notes":     line.Notes,
			"subtotal":  line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)).String(),
		})
	}
	return map[string]any{
		"items":      items,
		"totalItems": totals.Items,
		"totalPrice": totals.Price.String(),
	}
}

// loadCart reads the guest's persisted cart; a broken snapshot just means
// an empty cart.
func (h *Handler) loadCart(r *http.Request) (*cart.Cart, string, error) {
	sessionID := middleware.GetSessionID(r.Context())
	c, err := h.Carts.Load(r.Context(), sessionID)
	return c, sessionID, err
}

// saveCart persists the cart after a mutation. Persistence failures are
// logged but do not fail the request: the snapshot is advisory.
func (h *Handler) saveCart(r *http.Request, sessionID string, c *cart.Cart) {
	if err := h.Carts.Save(r.Context(), sessionID, c); err != nil {
		h.Logger.Warn("cart snapshot save failed", zap.String("sessionId", sessionID), zap.Error(err))
	}
}

func (h *Handler) CartGet(w http.ResponseWriter, r *http.Request) {
	c, _, err := h.loadCart(r)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load cart")
		return
	}
	response.Success(w, cartPayload(c))
}

type cartAddRequest struct {
	ProductID int64  `json:"productId"`
	Quantity  int32  `json:"quantity"`
	Notes     string `json:"notes"`
}

func (h *Handler) CartAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body cartAddRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if body.ProductID <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Product id is required")
		return
	}
	if body.Quantity < 1 {
		body.Quantity = 1
	}

	var (
		name  string
		price pgtype.Numeric
	)
	err := h.DB.QueryRow(ctx, `
		select name, price from meals
		where id = $1 and is_active = true and deleted_at is null
	`, body.ProductID).Scan(&name, &price)
	if err != nil {
		response.Error(w, http.StatusNotFound, "MEAL_NOT_FOUND", "Meal not found or inactive")
		return
	}

	c, sessionID, err := h.loadCart(r)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load cart")
		return
	}

	c.AddItem(cart.Product{ID: body.ProductID, Name: name, UnitPrice: utils.NumericToDecimal(price)}, body.Quantity)
	if body.Notes != "" {
		c.UpdateItemNotes(body.ProductID, body.Notes)
	}
	h.saveCart(r, sessionID, c)

	response.Success(w, cartPayload(c))
}

type cartQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

func (h *Handler) CartUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := readPathInt64(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	var body cartQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	c, sessionID, err := h.loadCart(r)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load cart")
		return
	}

	c.UpdateQuantity(productID, body.Quantity)
	h.saveCart(r, sessionID, c)

	response.Success(w, cartPayload(c))
}

type cartNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) CartUpdateNotes(w http.ResponseWriter, r *http.Request) {
	productID, err := readPathInt64(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	var body cartNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	c, sessionID, err := h.loadCart(r)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load cart")
		return
	}

	c.UpdateItemNotes(productID, body.Notes)
	h.saveCart(r, sessionID, c)

	response.Success(w, cartPayload(c))
}

func (h *Handler) CartRemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := readPathInt64(r, "productId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid product id")
		return
	}

	c, sessionID, err := h.loadCart(r)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load cart")
		return
	}

	c.RemoveItem(productID)
	h.saveCart(r, sessionID, c)

	response.Success(w, cartPayload(c))
}

func (h *Handler) CartClear(w http.ResponseWriter, r *http.Request) {
	c, sessionID, err := h.loadCart(r)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load cart")
		return
	}

	c.Clear()
	if err := h.Carts.Delete(r.Context(), sessionID); err != nil {
		h.Logger.Warn("cart snapshot delete failed", zap.String("sessionId", sessionID), zap.Error(err))
	}

	response.Success(w, cartPayload(c))
}
