package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dapoer-buffet-services/internal/queue"
	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/pkg/response"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func generateOrderNumber(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("20060102"), suffix)
}

// publishOrderEvent emits an order lifecycle event; the queue worker turns
// it into a WhatsApp job. A missing queue or publish failure is logged and
// otherwise ignored: notification is best-effort, the order stands.
func (h *Handler) publishOrderEvent(ctx context.Context, eventType string, orderID int64, status string) {
	if h.Queue == nil {
		return
	}
	now := time.Now().UTC()
	event := map[string]any{
		"type":      eventType,
		"orderId":   orderID,
		"status":    status,
		"updatedAt": now,
	}
	routingKey := eventType
	if err := h.Queue.PublishJSON(ctx, queue.EventsExchange, routingKey, event); err != nil {
		h.Logger.Warn("order event publish failed",
			zap.String("type", eventType),
			zap.Int64("orderId", orderID),
			zap.Error(err))
	}
}

type cartCheckoutRequest struct {
	CustomerName  string  `json:"customerName"`
	CustomerPhone *string `json:"customerPhone"`
	Notes         *string `json:"notes"`
}

// CartCheckout turns the guest's persisted cart into an à la carte order.
func (h *Handler) CartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body cartCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.CustomerName) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Customer name is required")
		return
	}

	c, sessionID, err := h.loadCart(r)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load cart")
		return
	}
	if c.IsEmpty() {
		response.Error(w, http.StatusBadRequest, "CART_EMPTY", "Cart has no items")
		return
	}

	totals := c.Totals()
	orderNumber := generateOrderNumber("ORD")

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID int64
	err = tx.QueryRow(ctx, `
		insert into orders (order_number, order_type, status, customer_name, customer_phone, total_amount, notes, session_id, created_at, updated_at)
		values ($1, 'CART', 'PENDING', $2, $3, $4, $5, $6, now(), now())
		returning id
	`, orderNumber, strings.TrimSpace(body.CustomerName), body.CustomerPhone, utils.DecimalToNumeric(totals.Price), body.Notes, sessionID).Scan(&orderID)
	if err != nil {
		h.Logger.Error("order insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		return
	}

	for _, line := range c.Lines() {
		_, err = tx.Exec(ctx, `
			insert into order_items (order_id, meal_id, name, unit_price, quantity, notes)
			values ($1, $2, $3, $4, $5, $6)
		`, orderID, line.ProductID, line.Name, utils.DecimalToNumeric(line.UnitPrice), line.Quantity, line.Notes)
		if err != nil {
			h.Logger.Error("order item insert failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		return
	}

	h.publishOrderEvent(ctx, "order.created", orderID, "PENDING")

	c.Clear()
	if err := h.Carts.Delete(ctx, sessionID); err != nil {
		h.Logger.Warn("cart snapshot delete failed", zap.String("sessionId", sessionID), zap.Error(err))
	}

	response.Created(w, map[string]any{
		"orderId":     orderID,
		"orderNumber": orderNumber,
		"totalAmount": totals.Price.String(),
	})
}

// PublicOrderDetail lets a guest track an order by its number. Buffet
// orders include the flattened step selections, cart orders their items.
func (h *Handler) PublicOrderDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderNumber := readPathString(r, "orderNumber")
	if orderNumber == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Order number is required")
		return
	}

	var (
		orderID      int64
		orderType    string
		status       string
		customerName pgtype.Text
		totalAmount  pgtype.Numeric
		deliveryDate pgtype.Date
		deliveryTime pgtype.Text
		notes        pgtype.Text
		createdAt    time.Time
	)
	err := h.DB.QueryRow(ctx, `
		select o.id, o.order_type, o.status, coalesce(c.name, o.customer_name), o.total_amount,
		       o.delivery_date, o.delivery_time, o.notes, o.created_at
		from orders o
		left join customers c on c.id = o.customer_id
		where o.order_number = $1
	`, orderNumber).Scan(&orderID, &orderType, &status, &customerName, &totalAmount, &deliveryDate, &deliveryTime, &notes, &createdAt)
	if err != nil {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	payload := map[string]any{
		"orderNumber":  orderNumber,
		"orderType":    orderType,
		"status":       status,
		"customerName": nullIfEmptyText(customerName),
		"totalAmount":  utils.NumericToDecimal(totalAmount).String(),
		"deliveryTime": nullIfEmptyText(deliveryTime),
		"notes":        nullIfEmptyText(notes),
		"createdAt":    createdAt,
	}
	if deliveryDate.Valid {
		payload["deliveryDate"] = deliveryDate.Time.Format("2006-01-02")
	} else {
		payload["deliveryDate"] = nil
	}

	switch orderType {
	case "BUFFET":
		selections, err := h.loadOrderSelections(ctx, orderID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order selections")
			return
		}
		payload["selections"] = selections
	case "CART":
		items, err := h.loadOrderItems(ctx, orderID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order items")
			return
		}
		payload["items"] = items
	}

	response.Success(w, payload)
}

type orderSelection struct {
	StepID    int64  `json:"stepId"`
	StepTitle string `json:"stepTitle"`
	MealID    int64  `json:"mealId"`
	MealName  string `json:"mealName"`
}

type orderItem struct {
	MealID    int64  `json:"mealId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int32  `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	Notes     string `json:"notes"`
}

func (h *Handler) loadOrderSelections(ctx context.Context, orderID int64) ([]orderSelection, error) {
	rows, err := h.DB.Query(ctx, `
		select os.step_id, ps.title, os.meal_id, m.name
		from order_selections os
		join package_steps ps on ps.id = os.step_id
		join meals m on m.id = os.meal_id
		where os.order_id = $1
		order by ps.step_number, m.name
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := make([]orderSelection, 0)
	for rows.Next() {
		var sel orderSelection
		if err := rows.Scan(&sel.StepID, &sel.StepTitle, &sel.MealID, &sel.MealName); err != nil {
			return nil, err
		}
		selections = append(selections, sel)
	}
	return selections, rows.Err()
}

func (h *Handler) loadOrderItems(ctx context.Context, orderID int64) ([]orderItem, error) {
	rows, err := h.DB.Query(ctx, `
		select meal_id, name, unit_price, quantity, coalesce(notes, '')
		from order_items
		where order_id = $1
		order by id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]orderItem, 0)
	for rows.Next() {
		var (
			item      orderItem
			unitPrice pgtype.Numeric
		)
		if err := rows.Scan(&item.MealID, &item.Name, &unitPrice, &item.Quantity, &item.Notes); err != nil {
			return nil, err
		}
		price := utils.NumericToDecimal(unitPrice)
		item.UnitPrice = price.String()
		item.Subtotal = price.Mul(decimal.NewFromInt32(item.Quantity)).String()
		items = append(items, item)
	}
	return items, rows.Err()
}
