package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dapoer-buffet-services/internal/middleware"
	"dapoer-buffet-services/internal/utils"
	"dapoer-buffet-services/internal/wizard"
	"dapoer-buffet-services/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

func wizardPayload(s *wizard.Session) map[string]any {
	payload := map[string]any{
		"id":        s.ID,
		"state":     s.State,
		"stepIndex": s.StepIndex,
		"price":     s.Price().String(),
	}
	if s.Package != nil {
		payload["package"] = s.Package
	}
	if s.PersonOption != nil {
		payload["personOption"] = s.PersonOption
	}
	if len(s.Steps) > 0 {
		steps := make([]map[string]any, 0, len(s.Steps))
		for _, step := range s.Steps {
			steps = append(steps, map[string]any{
				"id":            step.ID,
				"stepNumber":    step.Number,
				"title":         step.Title,
				"minSelections": step.MinSelections,
				"maxSelections": step.MaxSelections,
				"selected":      s.SelectedMeals(step.ID),
			})
		}
		payload["steps"] = steps
	}
	if s.CustomerID != nil {
		payload["customerId"] = *s.CustomerID
	}
	if s.DeliveryDate != "" {
		payload["deliveryDate"] = s.DeliveryDate
	}
	if s.DeliveryTime != "" {
		payload["deliveryTime"] = s.DeliveryTime
	}
	if s.Notes != "" {
		payload["notes"] = s.Notes
	}
	if s.OrderNumber != "" {
		payload["orderNumber"] = s.OrderNumber
	}
	if s.State == wizard.StateMealSelection {
		canAdvance, guard := s.CanAdvance()
		payload["canAdvance"] = canAdvance
		if guard != nil {
			payload["advanceBlockedBy"] = guardPayload(guard)
		}
	}
	if s.State == wizard.StateSummary {
		canSubmit, err := s.CanSubmit()
		payload["canSubmit"] = canSubmit
		if err != nil {
			payload["submitBlockedBy"] = err.Error()
		}
	}
	return payload
}

func guardPayload(guard *wizard.OutOfRangeError) map[string]any {
	return map[string]any{
		"stepId":   guard.StepID,
		"count":    guard.Count,
		"min":      guard.Min,
		"max":      guard.Max,
		"violated": guard.Violated,
	}
}

// writeWizardCondition maps the machine's advisory conditions to 4xx codes.
// The session is always intact; the client just retries differently.
func writeWizardCondition(w http.ResponseWriter, err error) bool {
	var limit *wizard.LimitReachedError
	if errors.As(err, &limit) {
		response.Error(w, http.StatusConflict, "SELECTION_LIMIT_REACHED", limit.Error())
		return true
	}
	var guard *wizard.OutOfRangeError
	if errors.As(err, &guard) {
		response.Error(w, http.StatusConflict, "SELECTION_OUT_OF_RANGE", guard.Error())
		return true
	}
	var missing *wizard.MissingFieldError
	if errors.As(err, &missing) {
		response.Error(w, http.StatusConflict, "MISSING_REQUIRED_FIELD", missing.Error())
		return true
	}
	var transition *wizard.TransitionError
	if errors.As(err, &transition) {
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", transition.Error())
		return true
	}
	return false
}

func (h *Handler) loadWizard(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	sessionID := middleware.GetSessionID(r.Context())
	session, err := h.Wizards.Load(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, wizard.ErrSessionNotFound) {
			response.Error(w, http.StatusNotFound, "WIZARD_NOT_FOUND", "No wizard session; start one first")
			return nil, false
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load wizard session")
		return nil, false
	}
	return session, true
}

func (h *Handler) saveWizard(w http.ResponseWriter, r *http.Request, session *wizard.Session) bool {
	if err := h.Wizards.Save(r.Context(), session); err != nil {
		h.Logger.Error("wizard session save failed", zap.String("sessionId", session.ID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save wizard session")
		return false
	}
	return true
}

// WizardStart creates a fresh session at package selection, replacing any
// abandoned one under the same guest session.
func (h *Handler) WizardStart(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	session := wizard.NewSession(sessionID)
	if !h.saveWizard(w, r, session) {
		return
	}
	response.Created(w, wizardPayload(session))
}

func (h *Handler) WizardGet(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}
	response.Success(w, wizardPayload(session))
}

func (h *Handler) WizardCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())
	if err := h.Wizards.Delete(r.Context(), sessionID); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel wizard session")
		return
	}
	response.Success(w, map[string]any{"cancelled": true})
}

type wizardPackageRequest struct {
	PackageID int64 `json:"packageId"`
}

// WizardSelectPackage loads the package's steps from the catalog and hands
// them to the state machine together with the package.
func (h *Handler) WizardSelectPackage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body wizardPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}

	var name string
	err := h.DB.QueryRow(ctx, `
		select name from packages
		where id = $1 and is_active = true and deleted_at is null
	`, body.PackageID).Scan(&name)
	if err != nil {
		response.Error(w, http.StatusNotFound, "PACKAGE_NOT_FOUND", "Package not found")
		return
	}

	steps, err := h.loadPackageSteps(r, body.PackageID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load package steps")
		return
	}

	if err := session.SelectPackage(wizard.Package{ID: body.PackageID, Name: name}, wizardStepsFromCatalog(steps)); err != nil {
		if writeWizardCondition(w, err) {
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to select package")
		return
	}
	if !h.saveWizard(w, r, session) {
		return
	}

	response.Success(w, wizardPayload(session))
}

type wizardPersonOptionRequest struct {
	PersonOptionID int64 `json:"personOptionId"`
}

func (h *Handler) WizardSelectPersonOption(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body wizardPersonOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}
	if session.Package == nil {
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", "Select a package first")
		return
	}

	var (
		label string
		price pgtype.Numeric
	)
	err := h.DB.QueryRow(ctx, `
		select label, price from person_options
		where id = $1 and package_id = $2 and is_active = true
	`, body.PersonOptionID, session.Package.ID).Scan(&label, &price)
	if err != nil {
		response.Error(w, http.StatusNotFound, "PERSON_OPTION_NOT_FOUND", "Person option not found for this package")
		return
	}

	opt := wizard.PersonOption{ID: body.PersonOptionID, Label: label, Price: utils.NumericToDecimal(price)}
	if err := session.SelectPersonOption(opt); err != nil {
		if writeWizardCondition(w, err) {
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to select person option")
		return
	}
	if !h.saveWizard(w, r, session) {
		return
	}

	response.Success(w, wizardPayload(session))
}

type wizardToggleRequest struct {
	MealID int64 `json:"mealId"`
}

func (h *Handler) WizardToggleMeal(w http.ResponseWriter, r *http.Request) {
	stepID, err := readPathInt64(r, "stepId")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid step id")
		return
	}

	var body wizardToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}

	if err := session.ToggleMeal(stepID, body.MealID); err != nil {
		if writeWizardCondition(w, err) {
			return
		}
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if !h.saveWizard(w, r, session) {
		return
	}

	response.Success(w, wizardPayload(session))
}

func (h *Handler) WizardAdvance(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}

	if err := session.Advance(); err != nil {
		if writeWizardCondition(w, err) {
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to advance")
		return
	}
	if !h.saveWizard(w, r, session) {
		return
	}

	response.Success(w, wizardPayload(session))
}

func (h *Handler) WizardBack(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}

	if err := session.Back(); err != nil {
		if writeWizardCondition(w, err) {
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to go back")
		return
	}
	if !h.saveWizard(w, r, session) {
		return
	}

	response.Success(w, wizardPayload(session))
}

type wizardSummaryRequest struct {
	CustomerID    *int64  `json:"customerId"`
	CustomerName  *string `json:"customerName"`
	CustomerPhone *string `json:"customerPhone"`
	CustomerAddr  *string `json:"customerAddress"`
	DeliveryDate  *string `json:"deliveryDate"`
	DeliveryTime  *string `json:"deliveryTime"`
	Notes         *string `json:"notes"`
}

// WizardSummaryPut fills the summary fields. The customer is either picked
// from the directory by id or created inline from name/phone/address.
func (h *Handler) WizardSummaryPut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body wizardSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}

	if body.CustomerID != nil {
		var exists bool
		if err := h.DB.QueryRow(ctx, `select exists(select 1 from customers where id = $1)`, *body.CustomerID).Scan(&exists); err != nil || !exists {
			response.Error(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
			return
		}
		session.SetCustomer(*body.CustomerID)
	} else if body.CustomerName != nil && strings.TrimSpace(*body.CustomerName) != "" {
		var customerID int64
		err := h.DB.QueryRow(ctx, `
			insert into customers (name, phone, address, created_at, updated_at)
			values ($1, $2, $3, now(), now())
			returning id
		`, strings.TrimSpace(*body.CustomerName), body.CustomerPhone, body.CustomerAddr).Scan(&customerID)
		if err != nil {
			h.Logger.Error("customer insert failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create customer")
			return
		}
		session.SetCustomer(customerID)
	}

	if body.DeliveryDate != nil || body.DeliveryTime != nil {
		date := session.DeliveryDate
		timeOfDay := session.DeliveryTime
		if body.DeliveryDate != nil {
			date = strings.TrimSpace(*body.DeliveryDate)
		}
		if body.DeliveryTime != nil {
			timeOfDay = strings.TrimSpace(*body.DeliveryTime)
		}
		if date != "" && timeOfDay != "" {
			if err := utils.ValidateDeliverySlot(date, timeOfDay, h.Config.RestaurantTimezone); err != nil {
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
		}
		session.SetDelivery(date, timeOfDay)
	}

	if body.Notes != nil {
		session.SetNotes(*body.Notes)
	}

	if !h.saveWizard(w, r, session) {
		return
	}

	response.Success(w, wizardPayload(session))
}

// WizardSubmit assembles the submission payload and creates the buffet
// order. On any failure the session document is left untouched in summary
// so the guest can retry without losing anything.
func (h *Handler) WizardSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := h.loadWizard(w, r)
	if !ok {
		return
	}

	submission, err := session.BuildSubmission()
	if err != nil {
		if writeWizardCondition(w, err) {
			return
		}
		response.Error(w, http.StatusConflict, "SUBMIT_BLOCKED", err.Error())
		return
	}

	orderNumber := generateOrderNumber("BUF")

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID int64
	err = tx.QueryRow(ctx, `
		insert into orders (order_number, order_type, status, package_id, person_option_id, customer_id,
		                    total_amount, delivery_date, delivery_time, notes, session_id, created_at, updated_at)
		values ($1, 'BUFFET', 'PENDING', $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		returning id
	`, orderNumber, submission.PackageID, submission.PersonOptionID, submission.CustomerID,
		utils.DecimalToNumeric(submission.Price), submission.DeliveryDate, submission.DeliveryTime,
		submission.Notes, session.ID).Scan(&orderID)
	if err != nil {
		h.Logger.Error("buffet order insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order; session preserved")
		return
	}

	for _, pair := range submission.Selections {
		_, err = tx.Exec(ctx, `
			insert into order_selections (order_id, step_id, meal_id)
			values ($1, $2, $3)
		`, orderID, pair.StepID, pair.MealID)
		if err != nil {
			h.Logger.Error("order selection insert failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order; session preserved")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create order; session preserved")
		return
	}

	if err := session.MarkSubmitted(orderNumber); err != nil {
		// order exists; report success with the number anyway
		h.Logger.Warn("markSubmitted refused", zap.Error(err))
	}
	if !h.saveWizard(w, r, session) {
		return
	}

	h.publishOrderEvent(ctx, "order.created", orderID, "PENDING")

	response.Created(w, map[string]any{
		"orderId":     orderID,
		"orderNumber": orderNumber,
		"totalAmount": submission.Price.String(),
		"submittedAt": time.Now().UTC().Format(time.RFC3339),
	})
}
