package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/minhasfinancas/backend/internal/config"
	"github.com/minhasfinancas/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// TokenClaims is the payload carried by both access and refresh
// tokens: subject user id, email and role.
type TokenClaims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues, rotates and verifies token pairs. Access and
// refresh tokens are signed with distinct secrets and lifetimes.
type AuthService struct {
	db    *sql.DB
	audit AuditSink
}

func NewAuthService(db *sql.DB, audit AuditSink) *AuthService {
	return &AuthService{db: db, audit: audit}
}

// Login validates credentials and returns a fresh token pair. Every
// failure path reports the same generic Unauthorized so callers cannot
// tell which check failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, password, role, active FROM users WHERE email = $1`,
		email).Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Password, &user.Role, &user.Active)
	if err == sql.ErrNoRows {
		logrus.Infof("[AUTH] login failed, unknown email: %s", email)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.Active {
		logrus.Infof("[AUTH] login rejected for inactive user %d", user.ID)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logrus.Infof("[AUTH] login failed, bad password for user %d", user.ID)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:      user.ID,
		Description: fmt.Sprintf("user %s logged in", user.Email),
		Action:      models.AuditLogin,
		Entity:      "user",
		EntityID:    strconv.Itoa(user.ID),
	})

	logrus.Infof("[AUTH] login successful for user %d", user.ID)
	return pair, nil
}

// Refresh verifies a refresh token against the refresh secret and, on
// success, issues a brand-new access+refresh pair (rotation, not
// reuse). Any verification error is a generic Unauthorized.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(viper.GetString("jwt.refresh_secret")), nil
	})
	if err != nil || !token.Valid {
		logrus.Infof("[AUTH] refresh token rejected: %v", err)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	var user models.User
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, password, role, active FROM users WHERE id = $1`,
		userID).Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.Password, &user.Role, &user.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	logrus.Infof("[AUTH] refresh successful for user %d", user.ID)
	return s.issuePair(user)
}

// Logout records the audit entry only. Tokens are not revoked
// server-side: the client discards them and the access token stays
// valid until natural expiry.
func (s *AuthService) Logout(ctx context.Context, actor models.Principal) {
	s.audit.Record(ctx, models.AuditEntry{
		UserID:      actor.ID,
		Description: fmt.Sprintf("user %s logged out", actor.Email),
		Action:      models.AuditLogout,
		Entity:      "user",
		EntityID:    strconv.Itoa(actor.ID),
	})
	logrus.Infof("[AUTH] logout recorded for user %d", actor.ID)
}

func (s *AuthService) issuePair(user models.User) (*models.TokenPair, error) {
	accessTTL := config.AccessTTL()

	access, err := signToken(user, viper.GetString("jwt.access_secret"), accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := signToken(user, viper.GetString("jwt.refresh_secret"), config.RefreshTTL())
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessTTL.Seconds()),
	}, nil
}

func signToken(user models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique token id guarantees rotation even when two pairs
			// are issued within the same second.
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
