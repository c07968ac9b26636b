package handlers

import (
	"net/http"

	"github.com/minhasfinancas/backend/internal/models"
	"github.com/minhasfinancas/backend/internal/services"
)

type MovementHandler struct {
	service   *services.MovementService
	validator *services.ValidationHelper
}

func NewMovementHandler(service *services.MovementService) *MovementHandler {
	return &MovementHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Create records a movement
// @Summary Create movement
// @Description Record an inflow/outflow; the date must fall inside the declared period
// @Tags movements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateMovementRequest true "Movement"
// @Success 201 {object} models.Movement
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /movements [post]
func (h *MovementHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateMovementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	movement, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

// List lists the user's movements, optionally filtered by period
// @Summary List movements
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param period query string false "Period filter (yyyy-mm)"
// @Success 200 {array} models.Movement
// @Router /movements [get]
func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	movements, err := h.service.FindAll(r.Context(), principal, r.URL.Query().Get("period"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

// Get returns one movement
// @Summary Get movement
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param id path int true "Movement id"
// @Success 200 {object} models.Movement
// @Failure 404 {object} ErrorResponse
// @Router /movements/{id} [get]
func (h *MovementHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	movement, err := h.service.FindOne(r.Context(), principal, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movement)
}

// Update applies a partial update to a movement
// @Summary Update movement
// @Tags movements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Movement id"
// @Param request body models.UpdateMovementRequest true "Fields to update"
// @Success 200 {object} models.Movement
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /movements/{id} [put]
func (h *MovementHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateMovementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	movement, err := h.service.Update(r.Context(), principal, id, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movement)
}

// Remove deletes a movement
// @Summary Delete movement
// @Tags movements
// @Produce json
// @Security BearerAuth
// @Param id path int true "Movement id"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Router /movements/{id} [delete]
func (h *MovementHandler) Remove(w http.ResponseWriter, r *http.Request) {
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
