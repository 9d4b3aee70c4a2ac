package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/auth"
	"github.com/mkweon/asset-tracker/internal/model"
	"github.com/mkweon/asset-tracker/internal/repository"
)

// AuthService handles registration, login, and token renewal.
type AuthService struct {
	users  *repository.UserRepository
	issuer *auth.TokenIssuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *repository.UserRepository, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, issuer: issuer}
}

// Register creates an account and returns its first access token.
func (s *AuthService) Register(username, password string) (string, error) {
	if len(username) < 3 || len(username) > 50 {
		return "", fmt.Errorf("%w: username must be 3-50 characters", apperrors.ErrInvalidCredentials)
	}
	if len(password) < 4 || len(password) > 128 {
		return "", fmt.Errorf("%w: password must be 4-128 characters", apperrors.ErrInvalidCredentials)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.Create(user); err != nil {
		return "", err
	}

	return s.issuer.Issue(username)
}

// Login verifies credentials and returns an access token. A missing user
// and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(username, password string) (string, error) {
	user, err := s.users.GetByUsername(username)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return "", apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return "", apperrors.ErrInvalidCredentials
	}

	return s.issuer.Issue(username)
}

// RefreshToken issues a new token for an already-authenticated user.
func (s *AuthService) RefreshToken(username string) (string, error) {
	return s.issuer.Issue(username)
}

// UserForToken verifies a bearer token and loads its user.
func (s *AuthService) UserForToken(token string) (model.User, error) {
	username, err := s.issuer.Verify(token)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.GetByUsername(username)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return model.User{}, apperrors.ErrInvalidToken
	}
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}
