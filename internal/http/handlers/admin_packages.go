package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type packageRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   int32   `json:"sortOrder"`
	IsActive    *bool   `json:"isActive"`
}

func (h *Handler) AdminPackagesList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.DB.Query(ctx, `
		select p.id, p.name, p.description, p.image_url, p.sort_order, p.is_active,
		       (select count(*) from person_options po where po.package_id = p.id),
		       (select count(*) from package_steps ps where ps.package_id = p.id)
		from packages p
		where p.deleted_at is null
		order by p.sort_order, p.name
	`)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load packages")
		return
	}
	defer rows.Close()

	packages := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id          int64
			name        string
			description pgtype.Text
			imageURL    pgtype.Text
			sortOrder   int32
			isActive    bool
			optionCount int64
			stepCount   int64
		)
		if err := rows.Scan(&id, &name, &description, &imageURL, &sortOrder, &isActive, &optionCount, &stepCount); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load packages")
			return
		}
		packages = append(packages, map[string]any{
			"id":                id,
			"name":              name,
			"description":       nullIfEmptyText(description),
			"imageUrl":          nullIfEmptyText(imageURL),
			"sortOrder":         sortOrder,
			"isActive":          isActive,
			"personOptionCount": optionCount,
			"stepCount":         stepCount,
		})
	}

	response.Success(w, packages)
}

func (h *Handler) AdminPackagesCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body packageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Package name is required")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	var id int64
	err := h.DB.QueryRow(ctx, `
		insert into packages (name, description, sort_order, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, now(), now())
		returning id
	`, strings.TrimSpace(body.Name), body.Description, body.SortOrder, isActive).Scan(&id)
	if err != nil {
		h.Logger.Error("package insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create package")
		return
	}

	response.Created(w, map[string]any{"id": id})
}

func (h *Handler) AdminPackagesUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}

	var body packageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	isActive := true
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	tag, err := h.DB.Exec(ctx, `
		update packages
		set name = $2, description = $3, sort_order = $4, is_active = $5, updated_at = now()
		where id = $1 and deleted_at is null
	`, id, strings.TrimSpace(body.Name), body.Description, body.SortOrder, isActive)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update package")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "PACKAGE_NOT_FOUND", "Package not found")
		return
	}

	response.Success(w, map[string]any{"id": id})
}

func (h *Handler) AdminPackagesDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update packages set deleted_at = now(), is_active = false, updated_at = now()
		where id = $1 and deleted_at is null
	`, id)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete package")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "PACKAGE_NOT_FOUND", "Package not found")
		return
	}

	response.Success(w, map[string]any{"id": id, "deleted": true})
}

type personOptionRequest struct {
	Label     string  `json:"label"`
	Price     string  `json:"price"`
	JuiceInfo *string `json:"juiceInfo"`
	IsActive  *bool   `json:"isActive"`
}

func (h *Handler) AdminPersonOptionsCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packageID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}

	var body personOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Label) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Label is required")
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
		insert into person_options (package_id, label, price, juice_info, is_active)
		values ($1, $2, $3, $4, $5)
		returning id
	`, packageID, strings.TrimSpace(body.Label), utils.DecimalToNumeric(price), body.JuiceInfo, isActive).Scan(&id)
	if err != nil {
		h.Logger.Error("person option insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create person option")
		return
	}

	response.Created(w, map[string]any{"id": id})
}

func (h *Handler) AdminPersonOptionsUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packageID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}
	optionID, err := readPathInt64(r, "optionId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid person option id")
		return
	}

	var body personOptionRequest
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
		update person_options
		set label = $3, price = $4, juice_info = $5, is_active = $6
		where id = $2 and package_id = $1
	`, packageID, optionID, strings.TrimSpace(body.Label), utils.DecimalToNumeric(price), body.JuiceInfo, isActive)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update person option")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "PERSON_OPTION_NOT_FOUND", "Person option not found")
		return
	}

	response.Success(w, map[string]any{"id": optionID})
}

func (h *Handler) AdminPersonOptionsDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packageID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}
	optionID, err := readPathInt64(r, "optionId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid person option id")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		delete from person_options where id = $2 and package_id = $1
	`, packageID, optionID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete person option")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "PERSON_OPTION_NOT_FOUND", "Person option not found")
		return
	}

	response.Success(w, map[string]any{"id": optionID, "deleted": true})
}

type stepRequest struct {
	StepNumber    int32   `json:"stepNumber"`
	Title         string  `json:"title"`
	Instructions  *string `json:"instructions"`
	MinSelections int32   `json:"minSelections"`
	MaxSelections int32   `json:"maxSelections"`
	CategoryID    int64   `json:"categoryId"`
}

func validateStepBounds(minSel, maxSel int32) bool {
	return minSel >= 0 && minSel <= maxSel
}

func (h *Handler) AdminStepsCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packageID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}

	var body stepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Step title is required")
		return
	}
	if !validateStepBounds(body.MinSelections, body.MaxSelections) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Selection bounds must satisfy 0 <= min <= max")
		return
	}
	if body.CategoryID <= 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Category id is required")
		return
	}

	var id int64
	err = h.DB.QueryRow(ctx, `
		insert into package_steps (package_id, step_number, title, instructions, min_selections, max_selections, category_id)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id
	`, packageID, body.StepNumber, strings.TrimSpace(body.Title), body.Instructions, body.MinSelections, body.MaxSelections, body.CategoryID).Scan(&id)
	if err != nil {
		h.Logger.Error("package step insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create step")
		return
	}

	response.Created(w, map[string]any{"id": id})
}

func (h *Handler) AdminStepsUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packageID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}
	stepID, err := readPathInt64(r, "stepId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid step id")
		return
	}

	var body stepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if !validateStepBounds(body.MinSelections, body.MaxSelections) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Selection bounds must satisfy 0 <= min <= max")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update package_steps
		set step_number = $3, title = $4, instructions = $5, min_selections = $6, max_selections = $7, category_id = $8
		where id = $2 and package_id = $1
	`, packageID, stepID, body.StepNumber, strings.TrimSpace(body.Title), body.Instructions, body.MinSelections, body.MaxSelections, body.CategoryID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update step")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "STEP_NOT_FOUND", "Step not found")
		return
	}

	response.Success(w, map[string]any{"id": stepID})
}

func (h *Handler) AdminStepsDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packageID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}
	stepID, err := readPathInt64(r, "stepId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid step id")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		delete from package_steps where id = $2 and package_id = $1
	`, packageID, stepID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete step")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "STEP_NOT_FOUND", "Step not found")
		return
	}

	response.Success(w, map[string]any{"id": stepID, "deleted": true})
}
