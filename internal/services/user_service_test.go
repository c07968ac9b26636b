package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minhasfinancas/backend/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func fullUserRow(id int, name, email, phone, role string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "email", "phone", "password", "role", "active", "created_at", "updated_at"}).
		AddRow(id, name, email, phone, "$2a$10$hash", role, active, now, now)
}

func TestUserService_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	viper.Set("bcrypt.cost", bcrypt.MinCost)
	service := NewUserService(db, newAuditSink())

	req := models.CreateUserRequest{
		Name:     "Maria Silva",
		Email:    "Maria@Example.com",
		Phone:    "11999990000",
		Password: "password123",
	}

	t.Run("self registration forces USER role and lowercases email", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1 OR phone = \$2\)`).
			WithArgs("maria@example.com", "11999990000").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Maria Silva", "maria@example.com", "11999990000", sqlmock.AnyArg(), "USER").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(1, time.Now(), time.Now()))

		user, err := service.Create(context.Background(), nil, req)
		assert.NoError(t, err)
		assert.Equal(t, "maria@example.com", user.Email)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.True(t, user.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self registration cannot pick the admin role", func(t *testing.T) {
		elevated := req
		elevated.Role = models.RoleAdmin

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1 OR phone = \$2\)`).
			WithArgs("maria@example.com", "11999990000").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Maria Silva", "maria@example.com", "11999990000", sqlmock.AnyArg(), "USER").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(2, time.Now(), time.Now()))

		user, err := service.Create(context.Background(), nil, elevated)
		assert.NoError(t, err)
		assert.Equal(t, models.RoleUser, user.Role)
	})

	t.Run("admin may assign a role", func(t *testing.T) {
		admin := models.Principal{ID: 1, Role: models.RoleAdmin}
		elevated := req
		elevated.Email = "outro@example.com"
		elevated.Phone = "11888880000"
		elevated.Role = models.RoleAdmin

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1 OR phone = \$2\)`).
			WithArgs("outro@example.com", "11888880000").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Maria Silva", "outro@example.com", "11888880000", sqlmock.AnyArg(), "ADMIN").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(3, time.Now(), time.Now()))

		user, err := service.Create(context.Background(), &admin, elevated)
		assert.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)
	})

	t.Run("duplicate email or phone is a conflict", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email = \$1 OR phone = \$2\)`).
			WithArgs("maria@example.com", "11999990000").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := service.Create(context.Background(), nil, req)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestUserService_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewUserService(db, newAuditSink())
	user := models.Principal{ID: 2, Email: "maria@example.com", Role: models.RoleUser}
	admin := models.Principal{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin}

	t.Run("user cannot change own role", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(2).
			WillReturnRows(fullUserRow(2, "Maria Silva", "maria@example.com", "11999990000", "USER", true))

		role := models.RoleAdmin
		_, err := service.Update(context.Background(), user, 2, models.UpdateUserRequest{Role: &role})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin cannot change own role either", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(1).
			WillReturnRows(fullUserRow(1, "Admin", "admin@example.com", "11777770000", "ADMIN", true))

		role := models.RoleUser
		_, err := service.Update(context.Background(), admin, 1, models.UpdateUserRequest{Role: &role})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin changes another user's role", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(2).
			WillReturnRows(fullUserRow(2, "Maria Silva", "maria@example.com", "11999990000", "USER", true))

		mock.ExpectExec("UPDATE users SET").
			WithArgs("Maria Silva", "maria@example.com", "11999990000", sqlmock.AnyArg(), "ADMIN", true, sqlmock.AnyArg(), 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		role := models.RoleAdmin
		updated, err := service.Update(context.Background(), admin, 2, models.UpdateUserRequest{Role: &role})
		assert.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, updated.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin self deactivation through update is forbidden", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(1).
			WillReturnRows(fullUserRow(1, "Admin", "admin@example.com", "11777770000", "ADMIN", true))

		inactive := false
		_, err := service.Update(context.Background(), admin, 1, models.UpdateUserRequest{Active: &inactive})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("user deactivates own account through update", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(2).
			WillReturnRows(fullUserRow(2, "Maria Silva", "maria@example.com", "11999990000", "USER", true))

		mock.ExpectExec("UPDATE users SET").
			WithArgs("Maria Silva", "maria@example.com", "11999990000", sqlmock.AnyArg(), "USER", false, sqlmock.AnyArg(), 2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		inactive := false
		updated, err := service.Update(context.Background(), user, 2, models.UpdateUserRequest{Active: &inactive})
		assert.NoError(t, err)
		assert.False(t, updated.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email change re-checks uniqueness", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(2).
			WillReturnRows(fullUserRow(2, "Maria Silva", "maria@example.com", "11999990000", "USER", true))

		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE \(email = \$1 OR phone = \$2\) AND id <> \$3\)`).
			WithArgs("taken@example.com", "11999990000", 2).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		email := "taken@example.com"
		_, err := service.Update(context.Background(), user, 2, models.UpdateUserRequest{Email: &email})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("another user's account is off limits", func(t *testing.T) {
		name := "Novo Nome"
		_, err := service.Update(context.Background(), user, 3, models.UpdateUserRequest{Name: &name})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestUserService_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewUserService(db, newAuditSink())
	admin := models.Principal{ID: 1, Role: models.RoleAdmin}

	t.Run("admin cannot deactivate own account", func(t *testing.T) {
		err := service.Deactivate(context.Background(), admin, 1)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("user deactivates own account", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(2).
			WillReturnRows(fullUserRow(2, "Maria Silva", "maria@example.com", "11999990000", "USER", true))

		mock.ExpectExec("UPDATE users SET active = false").
			WithArgs(2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.Deactivate(context.Background(), models.Principal{ID: 2, Role: models.RoleUser}, 2)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin deactivates another user", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users WHERE id = \\$1").
			WithArgs(2).
			WillReturnRows(fullUserRow(2, "Maria Silva", "maria@example.com", "11999990000", "USER", true))

		mock.ExpectExec("UPDATE users SET active = false").
			WithArgs(2).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.Deactivate(context.Background(), admin, 2)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserService_FindAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewUserService(db, newAuditSink())

	t.Run("admin only", func(t *testing.T) {
		_, err := service.FindAll(context.Background(), models.Principal{ID: 2, Role: models.RoleUser})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("lists users ordered by name", func(t *testing.T) {
		rows := fullUserRow(1, "Ana", "ana@example.com", "11111110000", "ADMIN", true).
			AddRow(2, "Bruno", "bruno@example.com", "11222220000", "$2a$10$hash", "USER", true, time.Now(), time.Now())
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active, created_at, updated_at FROM users ORDER BY name").
			WillReturnRows(rows)

		users, err := service.FindAll(context.Background(), models.Principal{ID: 1, Role: models.RoleAdmin})
		assert.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, "Ana", users[0].Name)
	})
}
