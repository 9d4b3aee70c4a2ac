package handlers

import (
	"errors"
	"net/http"

	"github.com/mkweon/asset-tracker/internal/apperrors"
	"github.com/mkweon/asset-tracker/internal/service"
)

// AuthHandler handles registration, login, and token renewal.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CredentialsRequest is the register/login payload.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates an account and returns its first token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.authService.Register(req.Username, req.Password)
	if errors.Is(err, apperrors.ErrDuplicateUsername) {
		respondError(w, http.StatusConflict, "Conflict", "Username already exists")
		return
	}
	if errors.Is(err, apperrors.ErrInvalidCredentials) {
		respondError(w, http.StatusBadRequest, "Bad request", err.Error())
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if errors.Is(err, apperrors.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// RefreshToken exchanges a still-valid token for a fresh one.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	token, err := h.authService.RefreshToken(user.Username)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}
