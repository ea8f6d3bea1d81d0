package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

var orderStatuses = map[string]bool{
	"PENDING":   true,
	"CONFIRMED": true,
	"PREPARING": true,
	"READY":     true,
	"COMPLETED": true,
	"CANCELLED": true,
}

func (h *Handler) AdminOrdersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := `
		select o.id, o.order_number, o.order_type, o.status, coalesce(c.name, o.customer_name, ''),
		       o.total_amount, o.delivery_date, o.delivery_time, o.created_at
		from orders o
		left join customers c on c.id = o.customer_id
		where 1 = 1
	`
	args := []any{}
	if status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))); status != "" && orderStatuses[status] {
		args = append(args, status)
		query += fmt.Sprintf(" and o.status = $%d", len(args))
	}
	if orderType := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))); orderType == "CART" || orderType == "BUFFET" {
		args = append(args, orderType)
		query += fmt.Sprintf(" and o.order_type = $%d", len(args))
	}
	if date := strings.TrimSpace(r.URL.Query().Get("deliveryDate")); date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "deliveryDate must be YYYY-MM-DD")
			return
		}
		args = append(args, date)
		query += fmt.Sprintf(" and o.delivery_date = $%d", len(args))
	}
	query += ` order by o.created_at desc limit 200`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load orders")
		return
	}
	defer rows.Close()

	orders := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id           int64
			orderNumber  string
			orderType    string
			status       string
			customerName string
			totalAmount  pgtype.Numeric
			deliveryDate pgtype.Date
			deliveryTime pgtype.Text
			createdAt    time.Time
		)
		if err := rows.Scan(&id, &orderNumber, &orderType, &status, &customerName, &totalAmount, &deliveryDate, &deliveryTime, &createdAt); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load orders")
			return
		}
		order := map[string]any{
			"id":           id,
			"orderNumber":  orderNumber,
			"orderType":    orderType,
			"status":       status,
			"customerName": customerName,
			"totalAmount":  utils.NumericToDecimal(totalAmount).String(),
			"deliveryTime": nullIfEmptyText(deliveryTime),
			"createdAt":    createdAt,
		}
		if deliveryDate.Valid {
			order["deliveryDate"] = deliveryDate.Time.Format("2006-01-02")
		} else {
			order["deliveryDate"] = nil
		}
		orders = append(orders, order)
	}

	response.Success(w, orders)
}

func (h *Handler) AdminOrderDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	var (
		orderNumber   string
		orderType     string
		status        string
		customerName  pgtype.Text
		customerPhone pgtype.Text
		packageName   pgtype.Text
		optionLabel   pgtype.Text
		totalAmount   pgtype.Numeric
		deliveryDate  pgtype.Date
		deliveryTime  pgtype.Text
		notes         pgtype.Text
		createdAt     time.Time
	)
	err = h.DB.QueryRow(ctx, `
		select o.order_number, o.order_type, o.status,
		       coalesce(c.name, o.customer_name), coalesce(c.phone, o.customer_phone),
		       p.name, po.label,
		       o.total_amount, o.delivery_date, o.delivery_time, o.notes, o.created_at
		from orders o
		left join customers c on c.id = o.customer_id
		left join packages p on p.id = o.package_id
		left join person_options po on po.id = o.person_option_id
		where o.id = $1
	`, id).Scan(&orderNumber, &orderType, &status, &customerName, &customerPhone,
		&packageName, &optionLabel, &totalAmount, &deliveryDate, &deliveryTime, &notes, &createdAt)
	if err != nil {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	payload := map[string]any{
		"id":            id,
		"orderNumber":   orderNumber,
		"orderType":     orderType,
		"status":        status,
		"customerName":  nullIfEmptyText(customerName),
		"customerPhone": nullIfEmptyText(customerPhone),
		"packageName":   nullIfEmptyText(packageName),
		"personOption":  nullIfEmptyText(optionLabel),
		"totalAmount":   utils.NumericToDecimal(totalAmount).String(),
		"deliveryTime":  nullIfEmptyText(deliveryTime),
		"notes":         nullIfEmptyText(notes),
		"createdAt":     createdAt,
	}
	if deliveryDate.Valid {
		payload["deliveryDate"] = deliveryDate.Time.Format("2006-01-02")
	} else {
		payload["deliveryDate"] = nil
	}

	switch orderType {
	case "BUFFET":
		selections, err := h.loadOrderSelections(ctx, id)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order selections")
			return
		}
		payload["selections"] = selections
	case "CART":
		items, err := h.loadOrderItems(ctx, id)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order items")
			return
		}
		payload["items"] = items
	}

	response.Success(w, payload)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) AdminOrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	var body orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	status := strings.ToUpper(strings.TrimSpace(body.Status))
	if !orderStatuses[status] {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown order status")
		return
	}

	var current string
	if err := h.DB.QueryRow(ctx, `select status from orders where id = $1`, id).Scan(&current); err != nil {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}
	if current == "COMPLETED" || current == "CANCELLED" {
		response.Error(w, http.StatusConflict, "ORDER_FINALIZED", "Order status can no longer change")
		return
	}

	if _, err := h.DB.Exec(ctx, `update orders set status = $2, updated_at = now() where id = $1`, id, status); err != nil {
		h.Logger.Error("order status update failed", zap.Int64("orderId", id), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update order")
		return
	}

	h.publishOrderEvent(ctx, "order.status.updated", id, status)

	response.Success(w, map[string]any{"id": id, "status": status})
}

type receiptLine struct {
	Label    string
	Quantity int32
	Amount   string
	Notes    string
}

type receiptData struct {
	OrderNumber  string
	OrderType    string
	Status       string
	CustomerName string
	PackageName  string
	PersonOption string
	DeliveryDate string
	DeliveryTime string
	PlacedAt     string
	Lines        []receiptLine
	TotalAmount  string
}

func (h *Handler) AdminOrderReceiptPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order id")
		return
	}

	var (
		orderNumber  string
		orderType    string
		status       string
		customerName pgtype.Text
		packageName  pgtype.Text
		optionLabel  pgtype.Text
		totalAmount  pgtype.Numeric
		deliveryDate pgtype.Date
		deliveryTime pgtype.Text
		createdAt    time.Time
	)
	err = h.DB.QueryRow(ctx, `
		select o.order_number, o.order_type, o.status, coalesce(c.name, o.customer_name),
		       p.name, po.label, o.total_amount, o.delivery_date, o.delivery_time, o.created_at
		from orders o
		left join customers c on c.id = o.customer_id
		left join packages p on p.id = o.package_id
		left join person_options po on po.id = o.person_option_id
		where o.id = $1
	`, id).Scan(&orderNumber, &orderType, &status, &customerName, &packageName,
		&optionLabel, &totalAmount, &deliveryDate, &deliveryTime, &createdAt)
	if err != nil {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	data := receiptData{
		OrderNumber:  orderNumber,
		OrderType:    orderType,
		Status:       status,
		CustomerName: textOrEmpty(customerName),
		PackageName:  textOrEmpty(packageName),
		PersonOption: textOrEmpty(optionLabel),
		DeliveryTime: textOrEmpty(deliveryTime),
		PlacedAt:     createdAt.Format("2006-01-02 15:04"),
		TotalAmount:  utils.NumericToDecimal(totalAmount).StringFixed(2),
	}
	if deliveryDate.Valid {
		data.DeliveryDate = deliveryDate.Time.Format("2006-01-02")
	}

	switch orderType {
	case "BUFFET":
		selections, err := h.loadOrderSelections(ctx, id)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate receipt")
			return
		}
		data.Lines = append(data.Lines, receiptSelectionLines(selections)...)
	case "CART":
		items, err := h.loadOrderItems(ctx, id)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate receipt")
			return
		}
		data.Lines = append(data.Lines, receiptItemLines(items)...)
	}

	buf, err := renderOrderReceiptPDF(data)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate receipt")
		return
	}

	filename := fmt.Sprintf("receipt_%s.pdf", sanitizeFilename(orderNumber))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func receiptSelectionLines(selections []orderSelection) []receiptLine {
	lines := make([]receiptLine, 0, len(selections))
	for _, sel := range selections {
		lines = append(lines, receiptLine{
			Label: fmt.Sprintf("%s: %s", sel.StepTitle, sel.MealName),
		})
	}
	return lines
}

func receiptItemLines(items []orderItem) []receiptLine {
	lines := make([]receiptLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, receiptLine{
			Label:    item.Name,
			Quantity: item.Quantity,
			Amount:   item.Subtotal,
			Notes:    item.Notes,
		})
	}
	return lines
}

func textOrEmpty(value pgtype.Text) string {
	if !value.Valid {
		return ""
	}
	return value.String
}

func sanitizeFilename(value string) string {
	re := regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	clean := re.ReplaceAllString(value, "_")
	return strings.Trim(clean, "_")
}

func renderOrderReceiptPDF(data receiptData) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "Dapoer Buffet", "", 1, "C", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order %s", data.OrderNumber), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, data.OrderType, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Status: %s", data.Status), "", 1, "C", false, 0, "")
	if data.CustomerName != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Customer: %s", data.CustomerName), "", 1, "C", false, 0, "")
	}
	if data.DeliveryDate != "" {
		slot := data.DeliveryDate
		if data.DeliveryTime != "" {
			slot = fmt.Sprintf("%s %s", slot, data.DeliveryTime)
		}
		pdf.CellFormat(0, 5, fmt.Sprintf("Delivery: %s", slot), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("Placed: %s", data.PlacedAt), "", 1, "C", false, 0, "")

	if data.PackageName != "" {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, data.PackageName, "B", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		if data.PersonOption != "" {
			pdf.CellFormat(0, 5, data.PersonOption, "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, line := range data.Lines {
		label := line.Label
		if line.Quantity > 0 {
			label = fmt.Sprintf("%dx %s", line.Quantity, line.Label)
		}
		pdf.CellFormat(0, 5, label, "", 1, "L", false, 0, "")
		if line.Amount != "" {
			pdf.CellFormat(0, 5, fmt.Sprintf("Subtotal: %s", line.Amount), "", 1, "L", false, 0, "")
		}
		if line.Notes != "" {
			pdf.MultiCell(0, 4, fmt.Sprintf("Notes: %s", line.Notes), "", "L", false)
		}
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total: %s", data.TotalAmount), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
