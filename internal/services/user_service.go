package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minhasfinancas/backend/internal/config"
	"github.com/minhasfinancas/backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = "id, name, email, phone, password, role, active, created_at, updated_at"

// UserService manages accounts. Reads are scoped admin-or-self;
// removal is a soft delete that flips the active flag.
type UserService struct {
	db    *sql.DB
	audit AuditSink
}

func NewUserService(db *sql.DB, audit AuditSink) *UserService {
	return &UserService{db: db, audit: audit}
}

// Create registers a new user. A nil actor is self-registration and is
// always created with the USER role; only administrators may choose a
// role. Email and phone must be unique.
func (s *UserService) Create(ctx context.Context, actor *models.Principal, req models.CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(req.Email)

	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR phone = $2)`,
		email, req.Phone).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check user uniqueness: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: email or phone already registered", ErrConflict)
	}

	role := models.RoleUser
	if actor != nil && actor.IsAdmin() && req.Role != "" {
		role = req.Role
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), config.BcryptCost())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:   req.Name,
		Email:  email,
		Phone:  req.Phone,
		Role:   role,
		Active: true,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, phone, password, role, active)
		 VALUES ($1, $2, $3, $4, $5, true)
		 RETURNING id, created_at, updated_at`,
		user.Name, user.Email, user.Phone, string(hashed), string(user.Role)).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: email or phone already registered", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	actingID := user.ID
	if actor != nil {
		actingID = actor.ID
	}
	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actingID,
		Description: fmt.Sprintf("user %s created", user.Email),
		Action:      models.AuditCreate,
		Entity:      "user",
		EntityID:    strconv.Itoa(user.ID),
		After:       user,
	})

	logrus.Infof("[USER] created user %d (%s)", user.ID, user.Email)
	return &user, nil
}

// FindAll lists every user. Administrators only.
func (s *UserService) FindAll(ctx context.Context, actor models.Principal) ([]models.User, error) {
	if err := allowAdmin(actor); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindOne returns one user. Admin or the user themselves.
func (s *UserService) FindOne(ctx context.Context, actor models.Principal, id int) (*models.User, error) {
	if err := allow(actor, id); err != nil {
		return nil, err
	}
	return s.getByID(ctx, id)
}

// Update applies a partial field replace. Only administrators may
// change a role, and never their own. Email/phone changes re-check
// uniqueness.
func (s *UserService) Update(ctx context.Context, actor models.Principal, id int, req models.UpdateUserRequest) (*models.User, error) {
	if err := allow(actor, id); err != nil {
		return nil, err
	}

	before, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil && *req.Role != before.Role {
		if !actor.IsAdmin() || actor.ID == id {
			return nil, fmt.Errorf("%w: cannot change own role", ErrForbidden)
		}
	}
	if req.Active != nil && !*req.Active && actor.IsAdmin() && actor.ID == id {
		return nil, fmt.Errorf("%w: administrator cannot deactivate own account", ErrForbidden)
	}

	updated := *before
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = strings.ToLower(*req.Email)
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if req.Role != nil {
		updated.Role = *req.Role
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), config.BcryptCost())
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updated.Password = string(hashed)
	}

	if updated.Email != before.Email || updated.Phone != before.Phone {
		var taken bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE (email = $1 OR phone = $2) AND id <> $3)`,
			updated.Email, updated.Phone, id).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("check user uniqueness: %w", err)
		}
		if taken {
			return nil, fmt.Errorf("%w: email or phone already registered", ErrConflict)
		}
	}

	updated.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET name = $1, email = $2, phone = $3, password = $4, role = $5, active = $6, updated_at = $7
		 WHERE id = $8`,
		updated.Name, updated.Email, updated.Phone, updated.Password, string(updated.Role), updated.Active, updated.UpdatedAt, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: email or phone already registered", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("user %s updated", updated.Email),
		Action:      models.AuditUpdate,
		Entity:      "user",
		EntityID:    strconv.Itoa(id),
		Before:      before,
		After:       updated,
	})

	return &updated, nil
}

// Deactivate soft-deletes a user: the active flag is flipped and the
// row retained. Ordinary users may remove their own account; an
// administrator cannot deactivate their own.
func (s *UserService) Deactivate(ctx context.Context, actor models.Principal, id int) error {
	if err := allow(actor, id); err != nil {
		return err
	}
	if actor.IsAdmin() && actor.ID == id {
		return fmt.Errorf("%w: administrator cannot deactivate own account", ErrForbidden)
	}

	before, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("user %s deactivated", before.Email),
		Action:      models.AuditDelete,
		Entity:      "user",
		EntityID:    strconv.Itoa(id),
		Before:      before,
	})

	logrus.Infof("[USER] deactivated user %d", id)
	return nil
}

func (s *UserService) getByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &u, nil
}
