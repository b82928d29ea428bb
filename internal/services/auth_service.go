package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/folio-api/internal/auth"
	"github.com/isdelr/folio-api/internal/models"
)

// invalidCredentials is the only message a failed login ever produces.
const invalidCredentials = "Invalid credentials"

// TokenIssuer mints session tokens for a user ID.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthServiceProvider defines the interface for signup and login.
type AuthServiceProvider interface {
	Signup(ctx context.Context, in SignupInput) (AuthResult, error)
	Login(ctx context.Context, email, password string) (AuthResult, error)
}

// SignupInput is the data required to open an account.
type SignupInput struct {
	FirstName       string
	Email           string
	Password        string
	ConfirmPassword string
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Token string
	User  models.User
}

// AuthService orchestrates signup and login.
type AuthService struct {
	users     UserServiceProvider
	hasher    *auth.PasswordHasher
	tokens    TokenIssuer
	events    EventServiceProvider
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserServiceProvider, hasher *auth.PasswordHasher, tokens TokenIssuer, events EventServiceProvider) (*AuthService, error) {
	// Compared against when the email is unknown so both failure paths cost one bcrypt run.
	dummy, err := hasher.Hash("folio-api-placeholder")
	if err != nil {
		return nil, fmt.Errorf("prepare placeholder hash: %w", err)
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, events: events, dummyHash: dummy}, nil
}

// Signup creates an account and returns a session token for it.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	if in.FirstName == "" || in.Email == "" || in.Password == "" {
		return AuthResult{}, fmt.Errorf("%w: All fields are required", ErrValidation)
	}
	if in.Password != in.ConfirmPassword {
		return AuthResult{}, fmt.Errorf("%w: Passwords do not match", ErrValidation)
	}

	user, err := s.users.CreateUser(ctx, in.FirstName, in.Email, in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.events.Record(ctx, user.ID, models.EventSignup, "Account created.")
	return AuthResult{Token: token, User: user.Sanitized()}, nil
}

// Login verifies credentials and returns a fresh session token. Unknown
// emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return AuthResult{}, fmt.Errorf("%w: %s", ErrUnauthorized, invalidCredentials)
		}
		return AuthResult{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return AuthResult{}, fmt.Errorf("%w: %s", ErrUnauthorized, invalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.events.Record(ctx, user.ID, models.EventLogin, "Signed in.")
	return AuthResult{Token: token, User: user.Sanitized()}, nil
}
