package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/minhasfinancas/backend/internal/services"
)

type AuditHandler struct {
	service *services.AuditService
}

func NewAuditHandler(service *services.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List returns every audit entry, newest first (admin only)
// @Summary List audit entries
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AuditEntry
// @Failure 403 {object} ErrorResponse
// @Router /audit-logs [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListAll(r.Context(), principal)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Get returns one audit entry (admin only)
// @Summary Get audit entry
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry id"
// @Success 200 {object} models.AuditEntry
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /audit-logs/{id} [get]
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetByID(r.Context(), chi.URLParam(r, "id"), principal)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}
