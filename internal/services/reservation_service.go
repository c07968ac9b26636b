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

const reservationColumns = "id, user_id, category_id, date, description, value, created_at, updated_at"

// ReservationService manages earmarked amounts tied to a category.
// Reservations carry no period scoping.
type ReservationService struct {
	db    *sql.DB
	audit AuditSink
}

func NewReservationService(db *sql.DB, audit AuditSink) *ReservationService {
	return &ReservationService{db: db, audit: audit}
}

func (s *ReservationService) Create(ctx context.Context, actor models.Principal, req models.CreateReservationRequest) (*models.Reservation, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.Value.IsNegative() || req.Value.IsZero() {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidArgument)
	}
	if err := s.checkCategoryOwner(ctx, actor.ID, req.CategoryID); err != nil {
		return nil, err
	}

	reservation := models.Reservation{
		UserID:      actor.ID,
		CategoryID:  req.CategoryID,
		Date:        date,
		Description: req.Description,
		Value:       req.Value.Round(2),
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO reservations (user_id, category_id, date, description, value)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		reservation.UserID, reservation.CategoryID, reservation.Date,
		reservation.Description, reservation.Value).
		Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("reservation %s created", reservation.Description),
		Action:      models.AuditCreate,
		Entity:      "reservation",
		EntityID:    strconv.Itoa(reservation.ID),
		After:       reservation,
	})

	logrus.Infof("[RESERVATION] created reservation %d for user %d", reservation.ID, actor.ID)
	return &reservation, nil
}

func (s *ReservationService) FindAll(ctx context.Context, actor models.Principal) ([]models.Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE user_id = $1 ORDER BY date DESC, id DESC`,
		actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	reservations := []models.Reservation{}
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.UserID, &r.CategoryID, &r.Date, &r.Description, &r.Value, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func (s *ReservationService) FindOne(ctx context.Context, actor models.Principal, id int) (*models.Reservation, error) {
	reservation, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := allow(actor, reservation.UserID); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *ReservationService) Update(ctx context.Context, actor models.Principal, id int, req models.UpdateReservationRequest) (*models.Reservation, error) {
	before, err := s.FindOne(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated := *before
	if req.CategoryID != nil {
		if err := s.checkCategoryOwner(ctx, before.UserID, *req.CategoryID); err != nil {
			return nil, err
		}
		updated.CategoryID = *req.CategoryID
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		updated.Date = date
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
		`UPDATE reservations SET category_id = $1, date = $2, description = $3, value = $4, updated_at = $5
		 WHERE id = $6`,
		updated.CategoryID, updated.Date, updated.Description, updated.Value, updated.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update reservation: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("reservation %d updated", id),
		Action:      models.AuditUpdate,
		Entity:      "reservation",
		EntityID:    strconv.Itoa(id),
		Before:      before,
		After:       updated,
	})

	return &updated, nil
}

func (s *ReservationService) Remove(ctx context.Context, actor models.Principal, id int) error {
	before, err := s.FindOne(ctx, actor, id)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("reservation %d removed", id),
		Action:      models.AuditDelete,
		Entity:      "reservation",
		EntityID:    strconv.Itoa(id),
		Before:      before,
	})

	logrus.Infof("[RESERVATION] removed reservation %d for user %d", id, actor.ID)
	return nil
}

func (s *ReservationService) checkCategoryOwner(ctx context.Context, userID, categoryID int) error {
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

func (s *ReservationService) getByID(ctx context.Context, id int) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id).
		Scan(&r.ID, &r.UserID, &r.CategoryID, &r.Date, &r.Description, &r.Value, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup reservation: %w", err)
	}
	return &r, nil
}
