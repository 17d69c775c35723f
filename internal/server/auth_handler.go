package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/config"
	"github.com/jonathan/nfa-builder/internal/types"
)

// AuthHandler exchanges operator credentials for an API token.
type AuthHandler struct {
	credentials config.AuthConfig
	passwords   *config.PasswordConfig
	jwtService  *JWTService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(credentials config.AuthConfig, passwords *config.PasswordConfig, jwtService *JWTService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		passwords:   passwords,
		jwtService:  jwtService,
		logger:      logger,
	}
}

// Token handles operator login requests.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, &ErrValidation{Message: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, extractValidationErrors(err))
		return
	}

	if !h.authenticate(req.Username, req.Password) {
		h.logger.Warn("login rejected", zap.String("username", req.Username))
		writeError(w, h.logger, &ErrInvalidCredentials{})
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(req.Username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, types.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// authenticate compares the username in constant time and always runs the
// bcrypt check so a wrong username costs the same as a wrong password.
func (h *AuthHandler) authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.credentials.Username)) == 1
	passOK := h.passwords.VerifyPassword(password, h.credentials.PasswordHash)
	return userOK && passOK
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		// Return first validation error for simplicity
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Message: fmt.Sprintf("invalid request: %v", err)}
}
