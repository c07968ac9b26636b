package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/minhasfinancas/backend/internal/models"
	"github.com/minhasfinancas/backend/internal/services"
)

type BudgetHandler struct {
	service   *services.BudgetService
	validator *services.ValidationHelper
}

func NewBudgetHandler(service *services.BudgetService) *BudgetHandler {
	return &BudgetHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Create creates a budget for a period
// @Summary Create budget
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateBudgetRequest true "Budget"
// @Success 201 {object} models.Budget
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /budgets [post]
func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	budget, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, budget)
}

// List lists the user's budgets
// @Summary List budgets
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Budget
// @Router /budgets [get]
func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	budgets, err := h.service.FindAll(r.Context(), principal)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, budgets)
}

// Get returns one budget with its items
// @Summary Get budget
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget id"
// @Success 200 {object} models.Budget
// @Failure 404 {object} ErrorResponse
// @Router /budgets/{id} [get]
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	budget, err := h.service.FindOne(r.Context(), principal, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

// Update moves a budget to another period
// @Summary Update budget
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget id"
// @Param request body models.CreateBudgetRequest true "New period"
// @Success 200 {object} models.Budget
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /budgets/{id} [put]
func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	budget, err := h.service.Update(r.Context(), principal, id, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, budget)
}

// Remove deletes an empty budget
// @Summary Delete budget
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget id"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /budgets/{id} [delete]
func (h *BudgetHandler) Remove(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), principal, id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clone copies a budget and its items to a new period
// @Summary Clone budget
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Source budget id"
// @Param request body models.CloneBudgetRequest true "Target period"
// @Success 201 {object} models.Budget
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /budgets/{id}/clone [post]
func (h *BudgetHandler) Clone(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.CloneBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	budget, err := h.service.Clone(r.Context(), principal, id, req.Period)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, budget)
}

// AddItem adds an allocation line to a budget
// @Summary Add budget item
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Budget id"
// @Param request body models.CreateBudgetItemRequest true "Item"
// @Success 201 {object} models.BudgetItem
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /budgets/{id}/items [post]
func (h *BudgetHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateBudgetItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	item, err := h.service.AddItem(r.Context(), principal, id, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// UpdateItem applies a partial update to a budget item
// @Summary Update budget item
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Item id"
// @Param request body models.UpdateBudgetItemRequest true "Fields to update"
// @Success 200 {object} models.BudgetItem
// @Failure 404 {object} ErrorResponse
// @Router /budget-items/{itemId} [put]
func (h *BudgetHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "itemId")
	if !ok {
		return
	}

	var req models.UpdateBudgetItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	item, err := h.service.UpdateItem(r.Context(), principal, itemID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// RemoveItem deletes a budget item not referenced by movements
// @Summary Delete budget item
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param itemId path int true "Item id"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /budget-items/{itemId} [delete]
func (h *BudgetHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	itemID, ok := urlID(w, r, "itemId")
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), principal, itemID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PeriodCategories returns the reconciled category sources for a period
// @Summary Categories for period
// @Description Budget items of the period's budget plus the user's categories not yet allocated to it
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param period path string true "Period (yyyy-mm)"
// @Success 200 {object} models.PeriodCategories
// @Failure 400 {object} ErrorResponse
// @Router /periods/{period}/categories [get]
func (h *BudgetHandler) PeriodCategories(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	period := chi.URLParam(r, "period")

	result, err := h.service.CategoriesForPeriod(r.Context(), period, principal)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
