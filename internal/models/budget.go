package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is a user's planned allocation for one yyyy-mm period. The
// pair (user, period) is unique.
type Budget struct {
	ID        int          `json:"id"`
	UserID    int          `json:"userId"`
	Period    string       `json:"period"`
	Items     []BudgetItem `json:"items,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// BudgetItem is one planned allocation line inside a budget, tied to a
// category.
type BudgetItem struct {
	ID          int             `json:"id"`
	BudgetID    int             `json:"budgetId"`
	CategoryID  int             `json:"categoryId"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Sources for period entries: a movement filed against an entry is
// recorded via the budget item or via the category directly.
const (
	SourceBudget   = "orcamento"
	SourceCategory = "categoria"
)

// PeriodEntry is one thing a movement can be filed against in a given
// period: either a budget item (with its category joined in) or a
// category not yet allocated to the period's budget.
type PeriodEntry struct {
	BudgetItemID *int             `json:"budgetItemId,omitempty"`
	Description  string           `json:"description,omitempty"`
	Value        *decimal.Decimal `json:"value,omitempty"`
	CategoryID   int              `json:"categoryId"`
	CategoryName string           `json:"categoryName"`
	CategoryType CategoryType     `json:"categoryType"`
	Source       string           `json:"source"`
}

// PeriodCategories is the reconciliation result for one period: the
// two lists partition the user's categories.
type PeriodCategories struct {
	BudgetItems    []PeriodEntry `json:"budgetItems"`
	FreeCategories []PeriodEntry `json:"freeCategories"`
}

type CreateBudgetRequest struct {
	Period string `json:"period" validate:"required,len=7"`
}

type CloneBudgetRequest struct {
	Period string `json:"period" validate:"required,len=7"`
}

type CreateBudgetItemRequest struct {
	CategoryID  int             `json:"categoryId" validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,max=200"`
	Value       decimal.Decimal `json:"value"`
}

type UpdateBudgetItemRequest struct {
	CategoryID  *int             `json:"categoryId" validate:"omitempty,gt=0"`
	Description *string          `json:"description" validate:"omitempty,max=200"`
	Value       *decimal.Decimal `json:"value"`
}
