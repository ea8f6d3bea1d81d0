package handlers

import (
	"net/http"
	"time"

	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/internal/wizard"
	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
)

type catalogMeal struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   any    `json:"description"`
	ImageURL      any    `json:"imageUrl"`
	ImageThumbURL any    `json:"imageThumbUrl"`
}

type catalogStep struct {
	ID            int64         `json:"id"`
	StepNumber    int32         `json:"stepNumber"`
	Title         string        `json:"title"`
	Instructions  any           `json:"instructions"`
	MinSelections int32         `json:"minSelections"`
	MaxSelections int32         `json:"maxSelections"`
	CategoryID    int64         `json:"categoryId"`
	Meals         []catalogMeal `json:"meals"`
}

type catalogPersonOption struct {
	ID           int64  `json:"id"`
	Label        string `json:"label"`
	Price        string `json:"price"`
	HasJuiceInfo bool   `json:"hasJuiceInfo"`
}

func (h *Handler) PublicPackagesList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.DB.Query(ctx, `
		select id, name, description, image_url
		from packages
		where is_active = true and deleted_at is null
		order by sort_order, id
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
		)
		if err := rows.Scan(&id, &name, &description, &imageURL); err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load packages")
			return
		}
		packages = append(packages, map[string]any{
			"id":          id,
			"name":        name,
			"description": nullIfEmptyText(description),
			"imageUrl":    nullIfEmptyText(imageURL),
		})
	}

	response.Success(w, packages)
}

// PublicPackageDetail returns the package with its person options and its
// steps, each step carrying the selectable meals of its linked category.
// This is the catalog payload the wizard stores when a package is chosen.
func (h *Handler) PublicPackageDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	packageID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid package id")
		return
	}

	var (
		name        string
		description pgtype.Text
		imageURL    pgtype.Text
	)
	err = h.DB.QueryRow(ctx, `
		select name, description, image_url
		from packages
		where id = $1 and is_active = true and deleted_at is null
	`, packageID).Scan(&name, &description, &imageURL)
	if err != nil {
		response.Error(w, http.StatusNotFound, "PACKAGE_NOT_FOUND", "Package not found")
		return
	}

	options, err := h.loadPersonOptions(r, packageID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load person options")
		return
	}

	steps, err := h.loadPackageSteps(r, packageID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load package steps")
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"id":            packageID,
			"name":          name,
			"description":   nullIfEmptyText(description),
			"imageUrl":      nullIfEmptyText(imageURL),
			"personOptions": options,
			"steps":         steps,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) loadPersonOptions(r *http.Request, packageID int64) ([]catalogPersonOption, error) {
	rows, err := h.DB.Query(r.Context(), `
		select id, label, price, juice_info is not null
		from person_options
		where package_id = $1 and is_active = true
		order by price, id
	`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := make([]catalogPersonOption, 0)
	for rows.Next() {
		var (
			opt   catalogPersonOption
			price pgtype.Numeric
		)
		if err := rows.Scan(&opt.ID, &opt.Label, &price, &opt.HasJuiceInfo); err != nil {
			return nil, err
		}
		opt.Price = utils.NumericToDecimal(price).String()
		options = append(options, opt)
	}
	return options, rows.Err()
}

func (h *Handler) loadPackageSteps(r *http.Request, packageID int64) ([]catalogStep, error) {
	ctx := r.Context()

	rows, err := h.DB.Query(ctx, `
		select id, step_number, title, instructions, min_selections, max_selections, category_id
		from package_steps
		where package_id = $1
		order by step_number
	`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := make([]catalogStep, 0)
	for rows.Next() {
		var (
			step         catalogStep
			instructions pgtype.Text
		)
		if err := rows.Scan(&step.ID, &step.StepNumber, &step.Title, &instructions, &step.MinSelections, &step.MaxSelections, &step.CategoryID); err != nil {
			return nil, err
		}
		step.Instructions = nullIfEmptyText(instructions)
		step.Meals = make([]catalogMeal, 0)
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range steps {
		mealRows, err := h.DB.Query(ctx, `
			select id, name, description, image_url, image_thumb_url
			from meals
			where category_id = $1 and is_active = true and deleted_at is null
			order by name
		`, steps[i].CategoryID)
		if err != nil {
			return nil, err
		}
		for mealRows.Next() {
			var (
				meal        catalogMeal
				description pgtype.Text
				imageURL    pgtype.Text
				thumbURL    pgtype.Text
			)
			if err := mealRows.Scan(&meal.ID, &meal.Name, &description, &imageURL, &thumbURL); err != nil {
				mealRows.Close()
				return nil, err
			}
			meal.Description = nullIfEmptyText(description)
			meal.ImageURL = nullIfEmptyText(imageURL)
			meal.ImageThumbURL = nullIfEmptyText(thumbURL)
			steps[i].Meals = append(steps[i].Meals, meal)
		}
		mealRows.Close()
		if err := mealRows.Err(); err != nil {
			return nil, err
		}
	}

	return steps, nil
}

// PublicJuiceInfo returns the informational juice rule attached to a person
// option. "Not found" is a normal answer, not a failure.
func (h *Handler) PublicJuiceInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	optionID, err := readPathInt64(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid person option id")
		return
	}

	var juiceInfo pgtype.Text
	err = h.DB.QueryRow(ctx, `
		select juice_info from person_options where id = $1 and is_active = true
	`, optionID).Scan(&juiceInfo)
	if err != nil {
		response.Error(w, http.StatusNotFound, "PERSON_OPTION_NOT_FOUND", "Person option not found")
		return
	}

	if !juiceInfo.Valid || juiceInfo.String == "" {
		response.Error(w, http.StatusNotFound, "JUICE_INFO_NOT_FOUND", "No juice info for this option")
		return
	}

	response.Success(w, map[string]any{
		"personOptionId": optionID,
		"info":           juiceInfo.String,
	})
}

// wizardStepsFromCatalog converts catalog steps into the wizard's view.
func wizardStepsFromCatalog(steps []catalogStep) []wizard.Step {
	out := make([]wizard.Step, 0, len(steps))
	for _, step := range steps {
		out = append(out, wizard.Step{
			ID:            step.ID,
			Number:        step.StepNumber,
			Title:         step.Title,
			MinSelections: step.MinSelections,
			MaxSelections: step.MaxSelections,
		})
	}
	return out
}
