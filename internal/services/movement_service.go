package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/minhasfinancas/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const movementColumns = "id, user_id, period, date, description, value, budget_item_id, category_id, created_at, updated_at"

// MovementService manages recorded inflows/outflows. A movement's date
// must fall inside its declared yyyy-mm period, and it must reference
// either a budget item or a category; when only a budget item is
// given, the item's category id is copied onto the movement at write
// time (a snapshot, never re-synced).
type MovementService struct {
	db    *sql.DB
	audit AuditSink
}

func NewMovementService(db *sql.DB, audit AuditSink) *MovementService {
	return &MovementService{db: db, audit: audit}
}

func (s *MovementService) Create(ctx context.Context, actor models.Principal, req models.CreateMovementRequest) (*models.Movement, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := checkPeriodContainment(req.Period, date); err != nil {
		return nil, err
	}
	if req.BudgetItemID == nil && req.CategoryID == nil {
		return nil, fmt.Errorf("%w: movement requires a budget item or a category", ErrInvalidArgument)
	}
	if req.Value.IsNegative() || req.Value.IsZero() {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidArgument)
	}

	categoryID := req.CategoryID
	if req.BudgetItemID != nil {
		itemCategory, err := s.resolveItemCategory(ctx, actor.ID, *req.BudgetItemID)
		if err != nil {
			return nil, err
		}
		if categoryID == nil {
			categoryID = &itemCategory
		}
	}
	if categoryID != nil && req.BudgetItemID == nil {
		if err := s.checkCategoryOwner(ctx, actor.ID, *categoryID); err != nil {
			return nil, err
		}
	}

	movement := models.Movement{
		UserID:       actor.ID,
		Period:       req.Period,
		Date:         date,
		Description:  req.Description,
		Value:        req.Value.Round(2),
		BudgetItemID: req.BudgetItemID,
		CategoryID:   categoryID,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO movements (user_id, period, date, description, value, budget_item_id, category_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		movement.UserID, movement.Period, movement.Date, movement.Description,
		movement.Value, movement.BudgetItemID, movement.CategoryID).
		Scan(&movement.ID, &movement.CreatedAt, &movement.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("movement %s recorded for period %s", movement.Description, movement.Period),
		Action:      models.AuditCreate,
		Entity:      "movement",
		EntityID:    strconv.Itoa(movement.ID),
		After:       movement,
	})

	logrus.Infof("[MOVEMENT] created movement %d for user %d", movement.ID, actor.ID)
	return &movement, nil
}

// FindAll returns the actor's movements, optionally filtered by
// period, most recent date first.
func (s *MovementService) FindAll(ctx context.Context, actor models.Principal, period string) ([]models.Movement, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if period != "" {
		if _, _, perr := parsePeriod(period); perr != nil {
			return nil, perr
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+movementColumns+` FROM movements WHERE user_id = $1 AND period = $2 ORDER BY date DESC, id DESC`,
			actor.ID, period)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+movementColumns+` FROM movements WHERE user_id = $1 ORDER BY date DESC, id DESC`,
			actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	movements := []models.Movement{}
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(&m.ID, &m.UserID, &m.Period, &m.Date, &m.Description, &m.Value, &m.BudgetItemID, &m.CategoryID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *MovementService) FindOne(ctx context.Context, actor models.Principal, id int) (*models.Movement, error) {
	movement, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, movement.UserID); err != nil {
		return nil, err
	}
	return movement, nil
}

// Update applies a partial field replace. The date/period containment
// check runs whenever either field would change.
func (s *MovementService) Update(ctx context.Context, actor models.Principal, id int, req models.UpdateMovementRequest) (*models.Movement, error) {
	before, err := s.FindOne(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated := *before
	if req.Period != nil {
		updated.Period = *req.Period
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		updated.Date = date
	}
	if req.Period != nil || req.Date != nil {
		if err := checkPeriodContainment(updated.Period, updated.Date); err != nil {
			return nil, err
		}
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
	if req.BudgetItemID != nil {
		itemCategory, err := s.resolveItemCategory(ctx, actor.ID, *req.BudgetItemID)
		if err != nil {
			return nil, err
		}
		updated.BudgetItemID = req.BudgetItemID
		if req.CategoryID == nil {
			updated.CategoryID = &itemCategory
		}
	}
	if req.CategoryID != nil {
		if err := s.checkCategoryOwner(ctx, before.UserID, *req.CategoryID); err != nil {
			return nil, err
		}
		updated.CategoryID = req.CategoryID
	}

	updated.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE movements SET period = $1, date = $2, description = $3, value = $4, budget_item_id = $5, category_id = $6, updated_at = $7
		 WHERE id = $8`,
		updated.Period, updated.Date, updated.Description, updated.Value,
		updated.BudgetItemID, updated.CategoryID, updated.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update movement: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("movement %d updated", id),
		Action:      models.AuditUpdate,
		Entity:      "movement",
		EntityID:    strconv.Itoa(id),
		Before:      before,
		After:       updated,
	})

	return &updated, nil
}

func (s *MovementService) Remove(ctx context.Context, actor models.Principal, id int) error {
	before, err := s.FindOne(ctx, actor, id)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("movement %d removed", id),
		Action:      models.AuditDelete,
		Entity:      "movement",
		EntityID:    strconv.Itoa(id),
		Before:      before,
	})

	logrus.Infof("[MOVEMENT] removed movement %d for user %d", id, actor.ID)
	return nil
}

// resolveItemCategory returns the category id of a budget item owned
// by userID, or NotFound.
func (s *MovementService) resolveItemCategory(ctx context.Context, userID, itemID int) (int, error) {
	var categoryID int
	err := s.db.QueryRowContext(ctx,
		`SELECT bi.category_id
		 FROM budget_items bi
		 JOIN budgets b ON b.id = bi.budget_id
		 WHERE bi.id = $1 AND b.user_id = $2`,
		itemID, userID).Scan(&categoryID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: budget item %d", ErrNotFound, itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup budget item: %w", err)
	}
	return categoryID, nil
}

func (s *MovementService) checkCategoryOwner(ctx context.Context, userID, categoryID int) error {
	var owner int
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM categories WHERE id = $1`, categoryID).Scan(&owner)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
	}
	if err != nil {
		return fmt.Errorf("lookup category: %w", err)
	}
	if owner != userID {
		return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
	}
	return nil
}

func (s *MovementService) getByID(ctx context.Context, id int) (*models.Movement, error) {
	var m models.Movement
	err := s.db.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE id = $1`, id).
		Scan(&m.ID, &m.UserID, &m.Period, &m.Date, &m.Description, &m.Value, &m.BudgetItemID, &m.CategoryID, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: movement %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup movement: %w", err)
	}
	return &m, nil
}
