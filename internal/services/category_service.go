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

const categoryColumns = "id, user_id, name, description, type, created_at, updated_at"

// CategoryService manages per-user categories. The pair (name, type)
// is unique within a user; a category referenced by budget items,
// movements or reservations cannot be deleted.
type CategoryService struct {
	db    *sql.DB
	audit AuditSink
}

func NewCategoryService(db *sql.DB, audit AuditSink) *CategoryService {
	return &CategoryService{db: db, audit: audit}
}

func (s *CategoryService) Create(ctx context.Context, actor models.Principal, req models.CreateCategoryRequest) (*models.Category, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE user_id = $1 AND name = $2 AND type = $3)`,
		actor.ID, req.Name, string(req.Type)).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check category uniqueness: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: category %q (%s) already exists", ErrConflict, req.Name, req.Type)
	}

	category := models.Category{
		UserID:      actor.ID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO categories (user_id, name, description, type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		category.UserID, category.Name, category.Description, string(category.Type)).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: category %q (%s) already exists", ErrConflict, req.Name, req.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("category %s created", category.Name),
		Action:      models.AuditCreate,
		Entity:      "category",
		EntityID:    strconv.Itoa(category.ID),
		After:       category,
	})

	logrus.Infof("[CATEGORY] created category %d for user %d", category.ID, actor.ID)
	return &category, nil
}

// FindAll returns the actor's categories ordered alphabetically by
// name.
func (s *CategoryService) FindAll(ctx context.Context, actor models.Principal) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY name`, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Type, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *CategoryService) FindOne(ctx context.Context, actor models.Principal, id int) (*models.Category, error) {
	category, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, category.UserID); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, actor models.Principal, id int, req models.UpdateCategoryRequest) (*models.Category, error) {
	before, err := s.FindOne(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated := *before
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Type != nil {
		updated.Type = *req.Type
	}

	if updated.Name != before.Name || updated.Type != before.Type {
		var taken bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM categories WHERE user_id = $1 AND name = $2 AND type = $3 AND id <> $4)`,
			before.UserID, updated.Name, string(updated.Type), id).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("check category uniqueness: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("%w: category %q (%s) already exists", ErrConflict, updated.Name, updated.Type)
		}
	}

	updated.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, description = $2, type = $3, updated_at = $4 WHERE id = $5`,
		updated.Name, updated.Description, string(updated.Type), updated.UpdatedAt, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: category %q (%s) already exists", ErrConflict, updated.Name, updated.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("category %s updated", updated.Name),
		Action:      models.AuditUpdate,
		Entity:      "category",
		EntityID:    strconv.Itoa(id),
		Before:      before,
		After:       updated,
	})

	return &updated, nil
}

// Remove hard-deletes a category unless any budget item, movement or
// reservation still references it.
func (s *CategoryService) Remove(ctx context.Context, actor models.Principal, id int) error {
	before, err := s.FindOne(ctx, actor, id)
	if err != nil {
		return err
	}

	var refs int
	err = s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM budget_items WHERE category_id = $1)
		      + (SELECT COUNT(*) FROM movements WHERE category_id = $1)
		      + (SELECT COUNT(*) FROM reservations WHERE category_id = $1)`,
		id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: category is in use", ErrConflict)
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("category %s removed", before.Name),
		Action:      models.AuditDelete,
		Entity:      "category",
		EntityID:    strconv.Itoa(id),
		Before:      before,
	})

	logrus.Infof("[CATEGORY] removed category %d for user %d", id, actor.ID)
	return nil
}

func (s *CategoryService) getByID(ctx context.Context, id int) (*models.Category, error) {
	var c models.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Type, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup category: %w", err)
	}
	return &c, nil
}
