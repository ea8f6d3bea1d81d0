package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

type customerRequest struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

// AdminCustomersList supports the buffet summary's customer picker: pass
// ?search= to match on name or phone.
func (h *Handler) AdminCustomersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := `
		select id, name, phone, email, address, created_at
		from customers
		where deleted_at is null
	`
	args := []any{}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		query += ` and (name ilike $1 or phone ilike $1)`
		args = append(args, "%"+search+"%")
	}
	query += ` order by name limit 100`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load customers")
		return
	}
	defer rows.Close()

	customers := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id        int64
			name      string
			phone     pgtype.Text
			email     pgtype.Text
			address   pgtype.Text
			createdAt time.Time
		)
		if err := rows.Scan(&id, &name, &phone, &email, &address, &createdAt); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load customers")
			return
		}
		customers = append(customers, map[string]any{
			"id":        id,
			"name":      name,
			"phone":     nullIfEmptyText(phone),
			"email":     nullIfEmptyText(email),
			"address":   nullIfEmptyText(address),
			"createdAt": createdAt,
		})
	}

	response.Success(w, customers)
}

func (h *Handler) AdminCustomersCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body customerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Customer name is required")
		return
	}

	var id int64
	err := h.DB.QueryRow(ctx, `
		insert into customers (name, phone, email, address, created_at, updated_at)
		values ($1, $2, $3, $4, now(), now())
		returning id
	`, strings.TrimSpace(body.Name), body.Phone, body.Email, body.Address).Scan(&id)
	if err != nil {
		h.Logger.Error("customer insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create customer")
		return
	}

	response.Created(w, map[string]any{"id": id})
}

func (h *Handler) AdminCustomersUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid customer id")
		return
	}

	var body customerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Customer name is required")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update customers
		set name = $2, phone = $3, email = $4, address = $5, updated_at = now()
		where id = $1 and deleted_at is null
	`, id, strings.TrimSpace(body.Name), body.Phone, body.Email, body.Address)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update customer")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	response.Success(w, map[string]any{"id": id})
}

func (h *Handler) AdminCustomersDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid customer id")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update customers set deleted_at = now(), updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete customer")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	response.Success(w, map[string]any{"id": id, "deleted": true})
}
