package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/TESCHEL/agenthq/internal/auth"
	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/domain"
	"github.com/TESCHEL/agenthq/internal/repository"
	apperrors "github.com/TESCHEL/agenthq/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates registration and login flows.
type AuthService struct {
	humans     repository.HumanRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, humans repository.HumanRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		humans:     humans,
		tokenMgr:   tokens,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a human account and issues a token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Human, *domain.Token, error) {
	name, err := requiredText("name", name, 120)
	if err != nil {
		return nil, nil, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if len(password) < minPasswordLength {
		return nil, nil, apperrors.NewValidationError("password too short", map[string]any{"field": "password", "min": minPasswordLength})
	}

	if _, err := s.humans.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	human := &domain.Human{Name: name, Email: email, PasswordHash: hash}
	if err := s.humans.Create(ctx, human); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	token, err := s.issue(human.ID)
	if err != nil {
		return nil, nil, err
	}
	return human, token, nil
}

// Login authenticates a human by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Human, *domain.Token, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	human, err := s.humans.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(human.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	token, err := s.issue(human.ID)
	if err != nil {
		return nil, nil, err
	}
	return human, token, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(humanID string) (*domain.Token, error) {
	value, exp, err := s.tokenMgr.GenerateToken(humanID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.Token{Value: value, SubjectID: humanID, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
	}
	return email, nil
}
