package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation is an earmarked amount of money tied to a category. Not
// period-scoped.
type Reservation struct {
	ID          int             `json:"id"`
	UserID      int             `json:"userId"`
	CategoryID  int             `json:"categoryId"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type CreateReservationRequest struct {
	CategoryID  int             `json:"categoryId" validate:"required,gt=0"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"required,max=200"`
	Value       decimal.Decimal `json:"value"`
}

type UpdateReservationRequest struct {
	CategoryID  *int             `json:"categoryId" validate:"omitempty,gt=0"`
	Date        *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description *string          `json:"description" validate:"omitempty,max=200"`
	Value       *decimal.Decimal `json:"value"`
}
