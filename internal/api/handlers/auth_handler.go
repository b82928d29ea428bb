package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/isdelr/folio-api/internal/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles signup and login.
type AuthHandler struct {
	service  services.AuthServiceProvider
	validate *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider) *AuthHandler {
	return &AuthHandler{service: service, validate: newValidator()}
}

// SignupPayload defines the structure for registration requests.
type SignupPayload struct {
	FirstName       string `json:"firstName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup handles new user registration.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := h.service.Signup(r.Context(), services.SignupInput{
		FirstName:       payload.FirstName,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, err, func(e *zerolog.Event) *zerolog.Event {
			return e.Str("email", payload.Email)
		}, "Signup failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Signup successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if err := h.validate.Struct(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	result, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			writeMessage(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		writeServiceError(w, err, func(e *zerolog.Event) *zerolog.Event {
			return e.Str("email", payload.Email)
		}, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}
