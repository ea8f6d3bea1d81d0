package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type mealRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       string  `json:"price"`
	CategoryID  int64   `json:"categoryId"`
	IsActive    *bool   `json:"isActive"`
}

func (h *Handler) AdminMealsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := `
		select m.id, m.name, m.description, m.price, m.category_id, c.name, m.image_url, m.image_thumb_url,
		       m.is_active, m.created_at, m.updated_at
		from meals m
		left join categories c on c.id = m.category_id
		where m.deleted_at is null
	`
	args := []any{}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		query += ` and m.name ilike $1`
		args = append(args, "%"+search+"%")
	}
	query += ` order by m.name`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load meals")
		return
	}
	defer rows.Close()

	meals := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id           int64
			name         string
			description  pgtype.Text
			price        pgtype.Numeric
			categoryID   pgtype.Int8
			categoryName pgtype.Text
			imageURL     pgtype.Text
			thumbURL     pgtype.Text
			isActive     bool
			createdAt    time.Time
			updatedAt    time.Time
		)
		if err := rows.Scan(&id, &name, &description, &price, &categoryID, &categoryName, &imageURL, &thumbURL, &isActive, &createdAt, &updatedAt); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load meals")
			return
		}
		meal := map[string]any{
			"id":            id,
			"name":          name,
			"description":   nullIfEmptyText(description),
			"price":         utils.NumericToDecimal(price).String(),
			"categoryName":  nullIfEmptyText(categoryName),
			"imageUrl":      nullIfEmptyText(imageURL),
			"imageThumbUrl": nullIfEmptyText(thumbURL),
			"isActive":      isActive,
			"createdAt":     createdAt,
			"updatedAt":     updatedAt,
		}
		if categoryID.Valid {
			meal["categoryId"] = categoryID.Int64
		} else {
			meal["categoryId"] = nil
		}
		meals = append(meals, meal)
	}

	response.Success(w, meals)
}

func (h *Handler) AdminMealsCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body mealRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Meal name is required")
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(body.Price))
	if err != nil || price.IsNegative() {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid price is required")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	var id int64
	err = h.DB.QueryRow(ctx, `
		insert into meals (name, description, price, category_id, is_active, created_at, updated_at)
		values ($1, $2, $3, nullif($4, 0), $5, now(), now())
		returning id
	`, strings.TrimSpace(body.Name), body.Description, utils.DecimalToNumeric(price), body.CategoryID, isActive).Scan(&id)
	if err != nil {
		h.Logger.Error("meal insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create meal")
		return
	}

	response.Created(w, map[string]any{"id": id})
}

func (h *Handler) AdminMealsUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid meal id")
		return
	}

	var body mealRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(body.Price))
	if err != nil || price.IsNegative() {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Valid price is required")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	tag, err := h.DB.Exec(ctx, `
		update meals
		set name = $2, description = $3, price = $4, category_id = nullif($5, 0), is_active = $6, updated_at = now()
		where id = $1 and deleted_at is null
	`, id, strings.TrimSpace(body.Name), body.Description, utils.DecimalToNumeric(price), body.CategoryID, isActive)
	if err != nil {
		h.Logger.Error("meal update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update meal")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "MEAL_NOT_FOUND", "Meal not found")
		return
	}

	response.Success(w, map[string]any{"id": id})
}

func (h *Handler) AdminMealsToggleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid meal id")
		return
	}

	var isActive bool
	err = h.DB.QueryRow(ctx, `
		update meals set is_active = not is_active, updated_at = now()
		where id = $1 and deleted_at is null
		returning is_active
	`, id).Scan(&isActive)
	if err != nil {
		response.Error(w, http.StatusNotFound, "MEAL_NOT_FOUND", "Meal not found")
		return
	}

	response.Success(w, map[string]any{"id": id, "isActive": isActive})
}

// AdminMealsDelete soft-deletes so past orders keep their references.
func (h *Handler) AdminMealsDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid meal id")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update meals set deleted_at = now(), is_active = false, updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete meal")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "MEAL_NOT_FOUND", "Meal not found")
		return
	}

	response.Success(w, map[string]any{"id": id, "deleted": true})
}
