package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement is an actual recorded inflow/outflow of money, filed under a
// yyyy-mm period and a category (directly or via a budget item). The
// movement's date must fall inside the declared period.
type Movement struct {
	ID           int             `json:"id"`
	UserID       int             `json:"userId"`
	Period       string          `json:"period"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description"`
	Value        decimal.Decimal `json:"value"`
	BudgetItemID *int            `json:"budgetItemId,omitempty"`
	CategoryID   *int            `json:"categoryId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type CreateMovementRequest struct {
	Period       string          `json:"period" validate:"required,len=7"`
	Date         string          `json:"date" validate:"required,datetime=2006-01-02"`
	Description  string          `json:"description" validate:"required,max=200"`
	Value        decimal.Decimal `json:"value"`
	BudgetItemID *int            `json:"budgetItemId" validate:"omitempty,gt=0"`
	CategoryID   *int            `json:"categoryId" validate:"omitempty,gt=0"`
}

type UpdateMovementRequest struct {
	Period       *string          `json:"period" validate:"omitempty,len=7"`
	Date         *string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description  *string          `json:"description" validate:"omitempty,max=200"`
	Value        *decimal.Decimal `json:"value"`
	BudgetItemID *int             `json:"budgetItemId" validate:"omitempty,gt=0"`
	CategoryID   *int             `json:"categoryId" validate:"omitempty,gt=0"`
}
