package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/minhasfinancas/backend/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

func setupAuthConfig() {
	viper.Set("jwt.access_secret", "test-access-secret")
	viper.Set("jwt.refresh_secret", "test-refresh-secret")
	viper.Set("jwt.access_ttl", 5*time.Minute)
	viper.Set("jwt.refresh_ttl", 168*time.Hour)
	viper.Set("bcrypt.cost", bcrypt.MinCost)
}

func userRow(id int, email, hash string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "phone", "password", "role", "active"}).
		AddRow(id, "Maria Silva", email, "11999990000", hash, "USER", active)
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, newAuditSink())
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	t.Run("successful login returns bearer pair", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		pair, err := service.Login(context.Background(), "maria@example.com", "password123")
		assert.NoError(t, err)
		assert.Equal(t, "Bearer", pair.TokenType)
		assert.Equal(t, 300, pair.ExpiresIn)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown email is unauthorized", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := service.Login(context.Background(), "nobody@example.com", "password123")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("wrong password is unauthorized with same message", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		_, err := service.Login(context.Background(), "maria@example.com", "wrong")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("inactive user is unauthorized", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), false))

		_, err := service.Login(context.Background(), "maria@example.com", "password123")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestAuthService_LoginAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	t.Run("successful login records exactly one LOGIN entry", func(t *testing.T) {
		sink := new(MockAuditSink)
		sink.On("Record", tmock.Anything, tmock.MatchedBy(func(entry models.AuditEntry) bool {
			return entry.Action == models.AuditLogin && entry.UserID == 1 && entry.EntityID == "1"
		})).Return().Once()
		service := NewAuthService(db, sink)

		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		_, err := service.Login(context.Background(), "maria@example.com", "password123")
		assert.NoError(t, err)
		sink.AssertExpectations(t)
		sink.AssertNumberOfCalls(t, "Record", 1)
	})

	t.Run("failed login records nothing", func(t *testing.T) {
		sink := new(MockAuditSink)
		service := NewAuthService(db, sink)

		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		_, err := service.Login(context.Background(), "maria@example.com", "wrong")
		assert.ErrorIs(t, err, ErrUnauthorized)
		sink.AssertNumberOfCalls(t, "Record", 0)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, newAuditSink())
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	t.Run("refresh rotates the pair", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		pair, err := service.Login(context.Background(), "maria@example.com", "password123")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE id = \\$1").
			WithArgs(1).
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		rotated, err := service.Refresh(context.Background(), pair.RefreshToken)
		assert.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
		assert.Equal(t, "Bearer", rotated.TokenType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		pair, err := service.Login(context.Background(), "maria@example.com", "password123")
		assert.NoError(t, err)

		_, err = service.Refresh(context.Background(), pair.AccessToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		_, err := service.Refresh(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("deactivated user cannot refresh", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(userRow(1, "maria@example.com", string(hash), true))

		pair, err := service.Login(context.Background(), "maria@example.com", "password123")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT id, name, email, phone, password, role, active FROM users WHERE id = \\$1").
			WithArgs(1).
			WillReturnRows(userRow(1, "maria@example.com", string(hash), false))

		_, err = service.Refresh(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
