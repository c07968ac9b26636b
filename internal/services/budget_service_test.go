package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minhasfinancas/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func budgetRow(id, userID int, period string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "period", "created_at", "updated_at"}).
		AddRow(id, userID, period, now, now)
}

func TestBudgetService_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBudgetService(db, newAuditSink())
	actor := models.Principal{ID: 2, Role: models.RoleUser}

	t.Run("creates a budget for a period", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM budgets WHERE user_id = \$1 AND period = \$2\)`).
			WithArgs(2, "2025-03").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		mock.ExpectQuery("INSERT INTO budgets").
			WithArgs(2, "2025-03").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(5, time.Now(), time.Now()))

		budget, err := service.Create(context.Background(), actor, models.CreateBudgetRequest{Period: "2025-03"})
		assert.NoError(t, err)
		assert.Equal(t, 5, budget.ID)
		assert.Equal(t, "2025-03", budget.Period)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second budget for the same period is a conflict", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM budgets WHERE user_id = \$1 AND period = \$2\)`).
			WithArgs(2, "2025-03").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.Create(context.Background(), actor, models.CreateBudgetRequest{Period: "2025-03"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("malformed period is rejected before any query", func(t *testing.T) {
		_, err := service.Create(context.Background(), actor, models.CreateBudgetRequest{Period: "03-2025"})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestBudgetService_Clone(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBudgetService(db, newAuditSink())
	actor := models.Principal{ID: 2, Role: models.RoleUser}

	t.Run("clones budget and items in one transaction", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE id = \\$1").
			WithArgs(5).
			WillReturnRows(budgetRow(5, 2, "2025-03"))

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM budgets WHERE user_id = \$1 AND period = \$2\)`).
			WithArgs(2, "2025-04").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO budgets").
			WithArgs(2, "2025-04").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(6, time.Now(), time.Now()))
		mock.ExpectExec("INSERT INTO budget_items").
			WithArgs(6, 5).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		clone, err := service.Clone(context.Background(), actor, 5, "2025-04")
		assert.NoError(t, err)
		assert.Equal(t, 6, clone.ID)
		assert.Equal(t, "2025-04", clone.Period)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clone into an occupied period is a conflict", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE id = \\$1").
			WithArgs(5).
			WillReturnRows(budgetRow(5, 2, "2025-03"))

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM budgets WHERE user_id = \$1 AND period = \$2\)`).
			WithArgs(2, "2025-04").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.Clone(context.Background(), actor, 5, "2025-04")
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestBudgetService_Remove(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBudgetService(db, newAuditSink())
	actor := models.Principal{ID: 2, Role: models.RoleUser}

	t.Run("budget owning items cannot be removed", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE id = \\$1").
			WithArgs(5).
			WillReturnRows(budgetRow(5, 2, "2025-03"))

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM budget_items WHERE budget_id = \\$1").
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		err := service.Remove(context.Background(), actor, 5)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "budget still owns items")
	})
}

func TestBudgetService_AddItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBudgetService(db, newAuditSink())
	actor := models.Principal{ID: 2, Role: models.RoleUser}

	t.Run("value must be positive", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE id = \\$1").
			WithArgs(5).
			WillReturnRows(budgetRow(5, 2, "2025-03"))

		_, err := service.AddItem(context.Background(), actor, 5, models.CreateBudgetItemRequest{
			CategoryID:  10,
			Description: "Groceries",
			Value:       decimal.Zero,
		})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("category of another user reads as not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE id = \\$1").
			WithArgs(5).
			WillReturnRows(budgetRow(5, 2, "2025-03"))

		mock.ExpectQuery("SELECT user_id FROM categories WHERE id = \\$1").
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3))

		_, err := service.AddItem(context.Background(), actor, 5, models.CreateBudgetItemRequest{
			CategoryID:  10,
			Description: "Groceries",
			Value:       decimal.NewFromInt(500),
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("adds an item", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE id = \\$1").
			WithArgs(5).
			WillReturnRows(budgetRow(5, 2, "2025-03"))

		mock.ExpectQuery("SELECT user_id FROM categories WHERE id = \\$1").
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(2))

		mock.ExpectQuery("INSERT INTO budget_items").
			WithArgs(5, 10, "Groceries", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(7, time.Now(), time.Now()))

		item, err := service.AddItem(context.Background(), actor, 5, models.CreateBudgetItemRequest{
			CategoryID:  10,
			Description: "Groceries",
			Value:       decimal.NewFromInt(500),
		})
		assert.NoError(t, err)
		assert.Equal(t, 7, item.ID)
		assert.True(t, item.Value.Equal(decimal.NewFromInt(500)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBudgetService_RemoveItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBudgetService(db, newAuditSink())
	actor := models.Principal{ID: 2, Role: models.RoleUser}

	itemRow := func() *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows([]string{"id", "budget_id", "category_id", "description", "value", "created_at", "updated_at", "user_id"}).
			AddRow(7, 5, 10, "Groceries", "500.00", now, now, 2)
	}

	t.Run("item referenced by movements cannot be removed", func(t *testing.T) {
		mock.ExpectQuery("SELECT bi.id, bi.budget_id, bi.category_id").
			WithArgs(7).
			WillReturnRows(itemRow())

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM movements WHERE budget_item_id = \\$1").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := service.RemoveItem(context.Background(), actor, 7)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unreferenced item is removed", func(t *testing.T) {
		mock.ExpectQuery("SELECT bi.id, bi.budget_id, bi.category_id").
			WithArgs(7).
			WillReturnRows(itemRow())

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM movements WHERE budget_item_id = \\$1").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectExec("DELETE FROM budget_items WHERE id = \\$1").
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.RemoveItem(context.Background(), actor, 7)
		assert.NoError(t, err)
	})
}

func TestBudgetService_CategoriesForPeriod(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewBudgetService(db, newAuditSink())
	actor := models.Principal{ID: 2, Role: models.RoleUser}

	t.Run("partitions categories between budget items and free", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM budgets WHERE user_id = \\$1 AND period = \\$2").
			WithArgs(2, "2025-03").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

		mock.ExpectQuery("SELECT bi.id, bi.description, bi.value, c.id, c.name, c.type").
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "description", "value", "category_id", "name", "type"}).
				AddRow(7, "Groceries", "500.00", 10, "Alimentacao", "DESPESA"))

		mock.ExpectQuery("SELECT id, name, type FROM categories WHERE user_id = \\$1 ORDER BY name").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type"}).
				AddRow(10, "Alimentacao", "DESPESA").
				AddRow(11, "Transporte", "DESPESA"))

		result, err := service.CategoriesForPeriod(context.Background(), "2025-03", actor)
		assert.NoError(t, err)

		assert.Len(t, result.BudgetItems, 1)
		entry := result.BudgetItems[0]
		assert.Equal(t, models.SourceBudget, entry.Source)
		assert.Equal(t, 10, entry.CategoryID)
		assert.Equal(t, "Alimentacao", entry.CategoryName)
		assert.NotNil(t, entry.BudgetItemID)
		assert.Equal(t, 7, *entry.BudgetItemID)
		assert.NotNil(t, entry.Value)
		assert.True(t, entry.Value.Equal(decimal.NewFromInt(500)))

		assert.Len(t, result.FreeCategories, 1)
		free := result.FreeCategories[0]
		assert.Equal(t, models.SourceCategory, free.Source)
		assert.Equal(t, 11, free.CategoryID)
		assert.Equal(t, "Transporte", free.CategoryName)
		assert.Nil(t, free.BudgetItemID)
		assert.Nil(t, free.Value)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("period without a budget lists every category as free", func(t *testing.T) {
		mock.ExpectQuery("SELECT id FROM budgets WHERE user_id = \\$1 AND period = \\$2").
			WithArgs(2, "2025-07").
			WillReturnError(sql.ErrNoRows)

		mock.ExpectQuery("SELECT id, name, type FROM categories WHERE user_id = \\$1 ORDER BY name").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type"}).
				AddRow(10, "Alimentacao", "DESPESA").
				AddRow(11, "Transporte", "DESPESA"))

		result, err := service.CategoriesForPeriod(context.Background(), "2025-07", actor)
		assert.NoError(t, err)
		assert.Empty(t, result.BudgetItems)
		assert.Len(t, result.FreeCategories, 2)
	})

	t.Run("malformed period is rejected", func(t *testing.T) {
		_, err := service.CategoriesForPeriod(context.Background(), "2025/03", actor)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}
