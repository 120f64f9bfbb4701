package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/auth"
	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/pkg/crypto"
	"github.com/charlesng35/weddingrsvp/pkg/metrics"
)

// TokenPair is returned to an admin after a successful login.
type TokenPair struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AdminService authenticates dashboard operators.
type AdminService struct {
	db    *gorm.DB
	jwt   *auth.JWTService
	audit *AuditService
	now   func() time.Time
}

// NewAdminService constructs an AdminService. audit may be nil.
func NewAdminService(db *gorm.DB, jwt *auth.JWTService, audit *AuditService) (*AdminService, error) {
	if db == nil {
		return nil, errors.New("admin service: db is required")
	}
	if jwt == nil {
		return nil, errors.New("admin service: jwt service is required")
	}
	return &AdminService{db: db, jwt: jwt, audit: audit, now: time.Now}, nil
}

// Authenticate verifies credentials and issues an access token.
func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*TokenPair, error) {
	ctx = ensureContext(ctx)
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.AdminLogins.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	var admin models.Admin
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.loginFailed(ctx, username)
		return nil, ErrInvalidCredentials
	case err != nil:
		metrics.AdminLogins.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("admin service: load admin: %w", err)
	}

	if !crypto.VerifyPassword(admin.PasswordHash, password) {
		s.loginFailed(ctx, username)
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(admin.ID, admin.Username)
	if err != nil {
		metrics.AdminLogins.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("admin service: issue token: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&admin).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("admin service: record login: %w", err)
	}

	metrics.AdminLogins.WithLabelValues("success").Inc()
	recordAudit(s.audit, ctx, AuditEntry{Actor: admin.Username, Action: "admin.login", Resource: "auth", Result: AuditSuccess})

	return &TokenPair{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.jwt.TTL().Seconds()),
	}, nil
}

func (s *AdminService) loginFailed(ctx context.Context, username string) {
	metrics.AdminLogins.WithLabelValues("failure").Inc()
	recordAudit(s.audit, ctx, AuditEntry{Actor: username, Action: "admin.login", Resource: "auth", Result: AuditFailure})
}
