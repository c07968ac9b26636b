package handlers

import (
	"net/http"

	"github.com/minhasfinancas/backend/internal/models"
	"github.com/minhasfinancas/backend/internal/services"
)

type ReservationHandler struct {
	service   *services.ReservationService
	validator *services.ValidationHelper
}

func NewReservationHandler(service *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Create creates a reservation
// @Summary Create reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateReservationRequest true "Reservation"
// @Success 201 {object} models.Reservation
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /reservations [post]
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req models.CreateReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	reservation, err := h.service.Create(r.Context(), principal, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reservation)
}

// List lists the user's reservations
// @Summary List reservations
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Reservation
// @Router /reservations [get]
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	reservations, err := h.service.FindAll(r.Context(), principal)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reservations)
}

// Get returns one reservation
// @Summary Get reservation
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation id"
// @Success 200 {object} models.Reservation
// @Failure 404 {object} ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	reservation, err := h.service.FindOne(r.Context(), principal, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

// Update applies a partial update to a reservation
// @Summary Update reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation id"
// @Param request body models.UpdateReservationRequest true "Fields to update"
// @Success 200 {object} models.Reservation
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /reservations/{id} [put]
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	reservation, err := h.service.Update(r.Context(), principal, id, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

// Remove deletes a reservation
// @Summary Delete reservation
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation id"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Remove(w http.ResponseWriter, r *http.Request) {
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
