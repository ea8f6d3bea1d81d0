package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "buffet.events"
	EventsQueue    = "buffet.notifications"

	WhatsAppJobsExchange = "buffet.whatsapp_jobs"
	WhatsAppJobsQueue    = "buffet.whatsapp_jobs.send"
	WhatsAppJobsDLQ      = "buffet.whatsapp_jobs.dlq"
	WhatsAppJobsRK       = "send"
	WhatsAppJobsDeadRK   = "dead"
)

type orderEvent struct {
	Type      string     `json:"type"`
	OrderID   int64      `json:"orderId"`
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// EnsureWhatsAppJobsTopology declares the direct exchange, the send queue
// with dead-lettering, and the DLQ the sender worker drains.
func EnsureWhatsAppJobsTopology(ctx context.Context, qc *Client) error {
	if qc == nil {
		return nil
	}

	if err := qc.EnsureExchangeKind(WhatsAppJobsExchange, "direct"); err != nil {
		return err
	}

	if _, err := qc.EnsureQueue(WhatsAppJobsDLQ); err != nil {
		return err
	}
	if err := qc.BindQueue(WhatsAppJobsDLQ, WhatsAppJobsExchange, WhatsAppJobsDeadRK); err != nil {
		return err
	}

	_, err := qc.EnsureQueueWithArgs(WhatsAppJobsQueue, amqp.Table{
		"x-dead-letter-exchange":    WhatsAppJobsExchange,
		"x-dead-letter-routing-key": WhatsAppJobsDeadRK,
	})
	if err != nil {
		return err
	}
	return qc.BindQueue(WhatsAppJobsQueue, WhatsAppJobsExchange, WhatsAppJobsRK)
}

// ProcessEventToJobs translates an order lifecycle event into a WhatsApp
// job for the external sender. Events without a customer phone are dropped.
func ProcessEventToJobs(ctx context.Context, db *pgxpool.Pool, qc *Client, body []byte) error {
	if db == nil || qc == nil {
		return nil
	}

	var evt orderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}
	if strings.TrimSpace(evt.Type) == "" {
		// unknown envelope
		return nil
	}
	if evt.Type != "order.created" && evt.Type != "order.status.updated" {
		return nil
	}

	var (
		orderNumber   string
		orderType     string
		customerName  string
		customerPhone *string
		deliveryDate  *time.Time
		deliveryTime  *string
	)
	query := `
		select o.order_number, o.order_type, coalesce(c.name, o.customer_name, ''), c.phone, o.delivery_date, o.delivery_time
		from orders o
		left join customers c on c.id = o.customer_id
		where o.id = $1
	`
	if err := db.QueryRow(ctx, query, evt.OrderID).Scan(&orderNumber, &orderType, &customerName, &customerPhone, &deliveryDate, &deliveryTime); err != nil {
		return err
	}

	phone := ""
	if customerPhone != nil {
		phone = strings.TrimSpace(*customerPhone)
	}
	if phone == "" {
		return nil
	}

	template := whatsAppTemplateFor(evt.Type, evt.Status)
	if template == "" {
		return nil
	}

	payload := map[string]any{
		"kind":         "whatsapp." + template,
		"phone":        phone,
		"customerName": customerName,
		"orderNumber":  orderNumber,
		"orderType":    orderType,
		"status":       strings.ToUpper(strings.TrimSpace(evt.Status)),
	}
	if deliveryDate != nil {
		payload["deliveryDate"] = deliveryDate.Format("2006-01-02")
	}
	if deliveryTime != nil {
		payload["deliveryTime"] = *deliveryTime
	}

	job := map[string]any{
		"kind":      "whatsapp." + template,
		"payload":   payload,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"attempt":   1,
	}
	if err := qc.PublishJSON(ctx, WhatsAppJobsExchange, WhatsAppJobsRK, job); err != nil {
		return fmt.Errorf("publish whatsapp job: %w", err)
	}
	return nil
}

func whatsAppTemplateFor(eventType string, status string) string {
	if eventType == "order.created" {
		return "order_received"
	}
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED", "PREPARING":
		return "order_preparing"
	case "READY":
		return "order_ready"
	case "COMPLETED":
		return "order_completed"
	case "CANCELLED":
		return "order_cancelled"
	default:
		return ""
	}
}
