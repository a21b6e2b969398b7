package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/model"
	"github.com/modelvault/modelvault/internal/repository"
)

// ErrInvalidCredentials covers both unknown email and wrong password so a
// failed login never reveals which half was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// CredentialStore is the slice of persistence the auth service needs.
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthService authenticates credentials and issues bearer tokens. A zero
// permission mask does not block login; such a token simply fails every
// role check downstream.
type AuthService struct {
	store  CredentialStore
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(store CredentialStore, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		logger: logger.With("component", "service.auth"),
	}
}

// Login verifies email and password and returns a signed token plus the
// authenticated user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.Int("perms", int(user.Perms)),
	)

	return token, user, nil
}
