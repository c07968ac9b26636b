package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/minhasfinancas/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BudgetService manages budgets and their items, and reconciles a
// period's budget against the user's categories. One budget per
// (user, period); a budget owning items cannot be deleted; an item
// referenced by movements cannot be deleted.
type BudgetService struct {
	db    *sql.DB
	audit AuditSink
}

func NewBudgetService(db *sql.DB, audit AuditSink) *BudgetService {
	return &BudgetService{db: db, audit: audit}
}

func (s *BudgetService) Create(ctx context.Context, actor models.Principal, req models.CreateBudgetRequest) (*models.Budget, error) {
	if _, _, err := parsePeriod(req.Period); err != nil {
		return nil, err
	}

	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM budgets WHERE user_id = $1 AND period = $2)`,
		actor.ID, req.Period).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check budget uniqueness: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: budget for period %s already exists", ErrConflict, req.Period)
	}

	budget := models.Budget{UserID: actor.ID, Period: req.Period}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO budgets (user_id, period) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		budget.UserID, budget.Period).Scan(&budget.ID, &budget.CreatedAt, &budget.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: budget for period %s already exists", ErrConflict, req.Period)
	}
	if err != nil {
		return nil, fmt.Errorf("insert budget: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("budget for period %s created", budget.Period),
		Action:      models.AuditCreate,
		Entity:      "budget",
		EntityID:    strconv.Itoa(budget.ID),
		After:       budget,
	})

	logrus.Infof("[BUDGET] created budget %d (%s) for user %d", budget.ID, budget.Period, actor.ID)
	return &budget, nil
}

// FindAll returns the actor's budgets, most recent period first.
func (s *BudgetService) FindAll(ctx context.Context, actor models.Principal) ([]models.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE user_id = $1 ORDER BY period DESC`,
		actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Period, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// FindOne returns a budget with its items loaded.
func (s *BudgetService) FindOne(ctx context.Context, actor models.Principal, id int) (*models.Budget, error) {
	budget, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, budget.UserID); err != nil {
		return nil, err
	}

	items, err := s.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	budget.Items = items
	return budget, nil
}

// Update changes the budget's period, re-checking uniqueness.
func (s *BudgetService) Update(ctx context.Context, actor models.Principal, id int, req models.CreateBudgetRequest) (*models.Budget, error) {
	if _, _, err := parsePeriod(req.Period); err != nil {
		return nil, err
	}

	before, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, before.UserID); err != nil {
		return nil, err
	}

	if req.Period != before.Period {
		var taken bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM budgets WHERE user_id = $1 AND period = $2 AND id <> $3)`,
			before.UserID, req.Period, id).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("check budget uniqueness: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("%w: budget for period %s already exists", ErrConflict, req.Period)
		}
	}

	updated := *before
	updated.Period = req.Period
	updated.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE budgets SET period = $1, updated_at = $2 WHERE id = $3`,
		updated.Period, updated.UpdatedAt, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: budget for period %s already exists", ErrConflict, req.Period)
	}
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("budget %d moved to period %s", id, updated.Period),
		Action:      models.AuditUpdate,
		Entity:      "budget",
		EntityID:    strconv.Itoa(id),
		Before:      before,
		After:       updated,
	})

	return &updated, nil
}

// Remove deletes a budget. Blocked while the budget still owns items.
func (s *BudgetService) Remove(ctx context.Context, actor models.Principal, id int) error {
	before, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if err := allow(actor, before.UserID); err != nil {
		return err
	}

	var items int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budget_items WHERE budget_id = $1`, id).Scan(&items)
	if err != nil {
		return fmt.Errorf("count budget items: %w", err)
	}
	if items > 0 {
		return fmt.Errorf("%w: budget still owns items", ErrConflict)
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("budget for period %s removed", before.Period),
		Action:      models.AuditDelete,
		Entity:      "budget",
		EntityID:    strconv.Itoa(id),
		Before:      before,
	})

	logrus.Infof("[BUDGET] removed budget %d for user %d", id, actor.ID)
	return nil
}

// Clone copies a budget and all of its items to a new period. The
// budget row and the item copies are written in one database
// transaction so a crash cannot leave a half-cloned budget.
func (s *BudgetService) Clone(ctx context.Context, actor models.Principal, sourceID int, targetPeriod string) (*models.Budget, error) {
	if _, _, err := parsePeriod(targetPeriod); err != nil {
		return nil, err
	}

	source, err := s.getByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, source.UserID); err != nil {
		return nil, err
	}

	var taken bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM budgets WHERE user_id = $1 AND period = $2)`,
		source.UserID, targetPeriod).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check budget uniqueness: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: budget for period %s already exists", ErrConflict, targetPeriod)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clone: %w", err)
	}
	defer tx.Rollback()

	clone := models.Budget{UserID: source.UserID, Period: targetPeriod}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO budgets (user_id, period) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		clone.UserID, clone.Period).Scan(&clone.ID, &clone.CreatedAt, &clone.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: budget for period %s already exists", ErrConflict, targetPeriod)
	}
	if err != nil {
		return nil, fmt.Errorf("insert cloned budget: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO budget_items (budget_id, category_id, description, value)
		 SELECT $1, category_id, description, value FROM budget_items WHERE budget_id = $2`,
		clone.ID, sourceID)
	if err != nil {
		return nil, fmt.Errorf("copy budget items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clone: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("budget %d cloned to period %s", sourceID, targetPeriod),
		Action:      models.AuditCreate,
		Entity:      "budget",
		EntityID:    strconv.Itoa(clone.ID),
		After:       clone,
	})

	logrus.Infof("[BUDGET] cloned budget %d to %d (%s) for user %d", sourceID, clone.ID, targetPeriod, actor.ID)
	return &clone, nil
}

// AddItem creates a planned allocation line inside the actor's budget.
// The category must belong to the same user.
func (s *BudgetService) AddItem(ctx context.Context, actor models.Principal, budgetID int, req models.CreateBudgetItemRequest) (*models.BudgetItem, error) {
	budget, err := s.getByID(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, budget.UserID); err != nil {
		return nil, err
	}
	if req.Value.IsNegative() || req.Value.IsZero() {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidArgument)
	}

	var categoryOwner int
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id FROM categories WHERE id = $1`, req.CategoryID).Scan(&categoryOwner)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", ErrNotFound, req.CategoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup category: %w", err)
	}
	if categoryOwner != budget.UserID {
		return nil, fmt.Errorf("%w: category %d", ErrNotFound, req.CategoryID)
	}

	item := models.BudgetItem{
		BudgetID:    budgetID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Value:       req.Value.Round(2),
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO budget_items (budget_id, category_id, description, value)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		item.BudgetID, item.CategoryID, item.Description, item.Value).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert budget item: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("budget item %s added to budget %d", item.Description, budgetID),
		Action:      models.AuditCreate,
		Entity:      "budget_item",
		EntityID:    strconv.Itoa(item.ID),
		After:       item,
	})

	return &item, nil
}

// UpdateItem applies a partial field replace on a budget item.
func (s *BudgetService) UpdateItem(ctx context.Context, actor models.Principal, itemID int, req models.UpdateBudgetItemRequest) (*models.BudgetItem, error) {
	before, ownerID, err := s.getItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, ownerID); err != nil {
		return nil, err
	}

	updated := *before
	if req.CategoryID != nil {
		var categoryOwner int
		err = s.db.QueryRowContext(ctx,
			`SELECT user_id FROM categories WHERE id = $1`, *req.CategoryID).Scan(&categoryOwner)
		if err == sql.ErrNoRows || (err == nil && categoryOwner != ownerID) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, *req.CategoryID)
		}
		if err != nil {
			return nil, fmt.Errorf("lookup category: %w", err)
		}
		updated.CategoryID = *req.CategoryID
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Value != nil {
		if req.Value.IsNegative() || req.Value.IsZero() {
			return nil, fmt.Errorf("%w: value must be positive", ErrInvalidArgument)
		}
		updated.Value = req.Value.Round(2)
	}

	updated.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE budget_items SET category_id = $1, description = $2, value = $3, updated_at = $4 WHERE id = $5`,
		updated.CategoryID, updated.Description, updated.Value, updated.UpdatedAt, itemID)
	if err != nil {
		return nil, fmt.Errorf("update budget item: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("budget item %d updated", itemID),
		Action:      models.AuditUpdate,
		Entity:      "budget_item",
		EntityID:    strconv.Itoa(itemID),
		Before:      before,
		After:       updated,
	})

	return &updated, nil
}

// RemoveItem deletes a budget item. Blocked while any movement still
// references it.
func (s *BudgetService) RemoveItem(ctx context.Context, actor models.Principal, itemID int) error {
	before, ownerID, err := s.getItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := allow(actor, ownerID); err != nil {
		return err
	}

	var refs int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM movements WHERE budget_item_id = $1`, itemID).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count item references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: budget item is referenced by movements", ErrConflict)
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM budget_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete budget item: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("budget item %d removed", itemID),
		Action:      models.AuditDelete,
		Entity:      "budget_item",
		EntityID:    strconv.Itoa(itemID),
		Before:      before,
	})

	return nil
}

// CategoriesForPeriod merges two sources into the unified list of
// things a movement can be filed against for one period: the period
// budget's items (joined with their categories) and the user's
// categories not yet allocated to that budget. Every category the user
// owns lands in exactly one of the two lists.
func (s *BudgetService) CategoriesForPeriod(ctx context.Context, period string, actor models.Principal) (*models.PeriodCategories, error) {
	if _, _, err := parsePeriod(period); err != nil {
		return nil, err
	}

	result := &models.PeriodCategories{
		BudgetItems:    []models.PeriodEntry{},
		FreeCategories: []models.PeriodEntry{},
	}
	allocated := map[int]bool{}

	var budgetID int
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM budgets WHERE user_id = $1 AND period = $2`,
		actor.ID, period).Scan(&budgetID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("lookup budget: %w", err)
	}

	if err == nil {
		rows, err := s.db.QueryContext(ctx,
			`SELECT bi.id, bi.description, bi.value, c.id, c.name, c.type
			 FROM budget_items bi
			 JOIN categories c ON c.id = bi.category_id
			 WHERE bi.budget_id = $1
			 ORDER BY c.name`,
			budgetID)
		if err != nil {
			return nil, fmt.Errorf("list budget items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var entry models.PeriodEntry
			var itemID int
			var value decimal.Decimal
			if err := rows.Scan(&itemID, &entry.Description, &value, &entry.CategoryID, &entry.CategoryName, &entry.CategoryType); err != nil {
				return nil, fmt.Errorf("scan budget item: %w", err)
			}
			entry.BudgetItemID = &itemID
			entry.Value = &value
			entry.Source = models.SourceBudget
			result.BudgetItems = append(result.BudgetItems, entry)
			allocated[entry.CategoryID] = true
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	catRows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type FROM categories WHERE user_id = $1 ORDER BY name`, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var entry models.PeriodEntry
		if err := catRows.Scan(&entry.CategoryID, &entry.CategoryName, &entry.CategoryType); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if allocated[entry.CategoryID] {
			continue
		}
		entry.Source = models.SourceCategory
		result.FreeCategories = append(result.FreeCategories, entry)
	}
	if err := catRows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *BudgetService) getByID(ctx context.Context, id int) (*models.Budget, error) {
	var b models.Budget
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, period, created_at, updated_at FROM budgets WHERE id = $1`, id).
		Scan(&b.ID, &b.UserID, &b.Period, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: budget %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup budget: %w", err)
	}
	return &b, nil
}

func (s *BudgetService) listItems(ctx context.Context, budgetID int) ([]models.BudgetItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, budget_id, category_id, description, value, created_at, updated_at
		 FROM budget_items WHERE budget_id = $1 ORDER BY id`,
		budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget items: %w", err)
	}
	defer rows.Close()

	items := []models.BudgetItem{}
	for rows.Next() {
		var item models.BudgetItem
		if err := rows.Scan(&item.ID, &item.BudgetID, &item.CategoryID, &item.Description, &item.Value, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan budget item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// getItem resolves a budget item plus the owning user id via its
// budget.
func (s *BudgetService) getItem(ctx context.Context, itemID int) (*models.BudgetItem, int, error) {
	var item models.BudgetItem
	var ownerID int
	err := s.db.QueryRowContext(ctx,
		`SELECT bi.id, bi.budget_id, bi.category_id, bi.description, bi.value, bi.created_at, bi.updated_at, b.user_id
		 FROM budget_items bi
		 JOIN budgets b ON b.id = bi.budget_id
		 WHERE bi.id = $1`,
		itemID).Scan(&item.ID, &item.BudgetID, &item.CategoryID, &item.Description, &item.Value, &item.CreatedAt, &item.UpdatedAt, &ownerID)
	if err == sql.ErrNoRows {
		return nil, 0, fmt.Errorf("%w: budget item %d", ErrNotFound, itemID)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("lookup budget item: %w", err)
	}
	return &item, ownerID, nil
}
