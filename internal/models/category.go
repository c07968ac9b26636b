package models

import "time"

type CategoryType string

const (
	CategoryReceita CategoryType = "RECEITA"
	CategoryDespesa CategoryType = "DESPESA"
	CategoryReserva CategoryType = "RESERVA"
)

// Category classifies movements, budget items and reservations. The
// pair (name, type) is unique per user.
type Category struct {
	ID          int          `json:"id"`
	UserID      int          `json:"userId"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        CategoryType `json:"type"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type CreateCategoryRequest struct {
	Name        string       `json:"name" validate:"required,min=1,max=100"`
	Description string       `json:"description" validate:"max=255"`
	Type        CategoryType `json:"type" validate:"required,oneof=RECEITA DESPESA RESERVA"`
}

type UpdateCategoryRequest struct {
	Name        *string       `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string       `json:"description" validate:"omitempty,max=255"`
	Type        *CategoryType `json:"type" validate:"omitempty,oneof=RECEITA DESPESA RESERVA"`
}
