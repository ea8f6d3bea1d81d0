package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"dapoer-buffet-services/internal/auth"
	"dapoer-buffet-services/internal/config"
	"dapoer-buffet-services/internal/utils"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server pushes order changes to the admin board and to guests tracking a
// single order. Changes are detected by polling at the configured interval,
// so writers need no special cooperation.
type Server struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
	Config config.Config
}

func New(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config) *Server {
	return &Server{DB: db, Logger: logger, Config: cfg}
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func (s *Server) pollInterval() time.Duration {
	if s.Config.WSPollInterval > 0 {
		return s.Config.WSPollInterval
	}
	return 5 * time.Second
}

// AdminOrdersWS streams the active orders board. Expects ?token= carrying
// the same bearer token the REST API uses.
func (s *Server) AdminOrdersWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	claims, err := auth.VerifyAccessToken(token, s.Config.JWTSecret)
	if err != nil || (claims.Role != auth.RoleAdmin && claims.Role != auth.RoleStaff && claims.Role != auth.RoleKitchen) {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}

	ctx := r.Context()
	client := &wsClient{conn: conn}

	lastSeen := "unsent"
	orders, err := s.fetchActiveOrders(ctx)
	if err != nil {
		s.Logger.Warn("active orders fetch failed", zap.Error(err))
	} else {
		_ = client.writeJSON(map[string]any{"type": "orders.state", "data": orders})
		lastSeen = ordersFingerprint(orders)
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			orders, err := s.fetchActiveOrders(ctx)
			if err != nil {
				s.Logger.Warn("active orders fetch failed", zap.Error(err))
				continue
			}
			fingerprint := ordersFingerprint(orders)
			if fingerprint == lastSeen {
				continue
			}
			lastSeen = fingerprint
			if writeErr := client.writeJSON(map[string]any{"type": "orders.state", "data": orders}); writeErr != nil {
				return
			}
		}
	}
}

// PublicOrderWS streams status changes for one order, addressed by
// ?orderNumber=. Order numbers are unguessable enough to act as the
// tracking credential, same as the REST tracking endpoint.
func (s *Server) PublicOrderWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	orderNumber := r.URL.Query().Get("orderNumber")
	if orderNumber == "" {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "invalid request"})
		return
	}

	ctx := r.Context()
	client := &wsClient{conn: conn}

	status, updatedAt, found := s.fetchOrderStatus(ctx, orderNumber)
	if !found {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "order not found"})
		return
	}
	_ = client.writeJSON(map[string]any{"type": "order.status", "status": status, "updatedAt": updatedAt})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pollInterval())
	defer ticker.Stop()

	lastStatus := status
	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, updatedAt, found := s.fetchOrderStatus(ctx, orderNumber)
			if !found {
				continue
			}
			if status == lastStatus {
				continue
			}
			lastStatus = status
			if writeErr := client.writeJSON(map[string]any{"type": "order.status", "status": status, "updatedAt": updatedAt}); writeErr != nil {
				return
			}
		}
	}
}

type activeOrder struct {
	ID           int64     `json:"id"`
	OrderNumber  string    `json:"orderNumber"`
	OrderType    string    `json:"orderType"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customerName"`
	TotalAmount  string    `json:"totalAmount"`
	DeliveryDate *string   `json:"deliveryDate"`
	DeliveryTime *string   `json:"deliveryTime"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (s *Server) fetchActiveOrders(ctx context.Context) ([]activeOrder, error) {
	rows, err := s.DB.Query(ctx, `
		select o.id, o.order_number, o.order_type, o.status, coalesce(c.name, o.customer_name, ''),
		       o.total_amount, o.delivery_date, o.delivery_time, o.updated_at
		from orders o
		left join customers c on c.id = o.customer_id
		where o.status in ('PENDING', 'CONFIRMED', 'PREPARING', 'READY')
		order by o.created_at desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]activeOrder, 0)
	for rows.Next() {
		var (
			order        activeOrder
			totalAmount  pgtype.Numeric
			deliveryDate pgtype.Date
			deliveryTime pgtype.Text
		)
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.OrderType, &order.Status,
			&order.CustomerName, &totalAmount, &deliveryDate, &deliveryTime, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.TotalAmount = utils.NumericToDecimal(totalAmount).String()
		if deliveryDate.Valid {
			formatted := deliveryDate.Time.Format("2006-01-02")
			order.DeliveryDate = &formatted
		}
		if deliveryTime.Valid && deliveryTime.String != "" {
			order.DeliveryTime = &deliveryTime.String
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ordersFingerprint identifies the exact contents of the active board.
// Rows entering, leaving or mutating the set all change the value, so an
// order finalized out of the active statuses still triggers a refresh
// even when it was the last active order.
func ordersFingerprint(orders []activeOrder) string {
	var b strings.Builder
	for _, o := range orders {
		fmt.Fprintf(&b, "%d:%s:%d;", o.ID, o.Status, o.UpdatedAt.UnixNano())
	}
	return b.String()
}

func (s *Server) fetchOrderStatus(ctx context.Context, orderNumber string) (string, time.Time, bool) {
	var (
		status  string
		updated time.Time
	)
	err := s.DB.QueryRow(ctx, `select status, updated_at from orders where order_number = $1`, orderNumber).Scan(&status, &updated)
	if err != nil {
		return "", time.Time{}, false
	}
	return status, updated, true
}
