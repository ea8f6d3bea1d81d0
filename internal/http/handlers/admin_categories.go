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

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   int32   `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
}

func (h *Handler) AdminCategoriesList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.DB.Query(ctx, `
		select c.id, c.name, c.description, c.sort_order, c.is_active, c.created_at,
		       (select count(*) from meals m where m.category_id = c.id and m.deleted_at is null)
		from categories c
		where c.deleted_at is null
		order by c.sort_order, c.name
	`)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load categories")
		return
	}
	defer rows.Close()

	categories := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id          int64
			name        string
			description pgtype.Text
			sortOrder   int32
			isActive    bool
			createdAt   time.Time
			mealCount   int64
		)
		if err := rows.Scan(&id, &name, &description, &sortOrder, &isActive, &createdAt, &mealCount); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load categories")
			return
		}
		categories = append(categories, map[string]any{
			"id":          id,
			"name":        name,
			"description": nullIfEmptyText(description),
			"sortOrder":   sortOrder,
			"isActive":    isActive,
			"createdAt":   createdAt,
			"mealCount":   mealCount,
		})
	}

	response.Success(w, categories)
}

func (h *Handler) AdminCategoriesCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Category name is required")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	var id int64
	err := h.DB.QueryRow(ctx, `
		insert into categories (name, description, sort_order, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, now(), now())
		returning id
	`, strings.TrimSpace(body.Name), body.Description, body.SortOrder, isActive).Scan(&id)
	if err != nil {
		h.Logger.Error("category insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create category")
		return
	}

	response.Created(w, map[string]any{"id": id})
}

func (h *Handler) AdminCategoriesUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid category id")
		return
	}

	var body categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	tag, err := h.DB.Exec(ctx, `
		update categories
		set name = $2, description = $3, sort_order = $4, is_active = $5, updated_at = now()
		where id = $1 and deleted_at is null
	`, id, strings.TrimSpace(body.Name), body.Description, body.SortOrder, isActive)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update category")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	response.Success(w, map[string]any{"id": id})
}

// AdminCategoriesDelete refuses while package steps still point at the
// category; meals are detached, not deleted.
func (h *Handler) AdminCategoriesDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid category id")
		return
	}

	var stepCount int64
	if err := h.DB.QueryRow(ctx, `select count(*) from package_steps where category_id = $1`, id).Scan(&stepCount); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete category")
		return
	}
	if stepCount > 0 {
		response.Error(w, http.StatusConflict, "CATEGORY_IN_USE", "Category is linked to buffet steps")
		return
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete category")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `update meals set category_id = null, updated_at = now() where category_id = $1`, id); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete category")
		return
	}

	tag, err := tx.Exec(ctx, `
		update categories set deleted_at = now(), is_active = false, updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete category")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete category")
		return
	}

	response.Success(w, map[string]any{"id": id, "deleted": true})
}
