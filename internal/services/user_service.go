package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/folio-api/internal/auth"
	"github.com/isdelr/folio-api/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// UserServiceProvider defines the interface for the credential store.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, firstName, email, password string) (models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error)
	SetProfileImage(ctx context.Context, id, path string) (models.User, error)
}

// UserUpdate carries the profile fields to change. Nil fields are left alone.
type UserUpdate struct {
	FirstName *string
	Email     *string
	Password  *string
}

// UserService provides persistence for user accounts.
type UserService struct {
	db           *sql.DB
	hasher       *auth.PasswordHasher
	defaultImage string
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, hasher *auth.PasswordHasher, defaultImage string) *UserService {
	return &UserService{db: db, hasher: hasher, defaultImage: defaultImage}
}

const userColumns = "id, first_name, email, password_hash, profile_image, created_at, updated_at"

func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(&user.ID, &user.FirstName, &user.Email, &user.PasswordHash,
		&user.ProfileImage, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// GetUserByID retrieves a single user by their ID. The password hash is not returned.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%w: User not found", ErrNotFound)
		}
		return models.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return user.Sanitized(), nil
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%w: User not found", ErrNotFound)
		}
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// CreateUser hashes the password and inserts a new user. Email uniqueness is
// enforced by the table's UNIQUE constraint, so two concurrent signups with
// the same address cannot both succeed.
func (s *UserService) CreateUser(ctx context.Context, firstName, email, password string) (models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return models.User{}, fmt.Errorf("%w: Password must be at most 72 bytes", ErrValidation)
		}
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New().String(),
		FirstName:    firstName,
		Email:        email,
		PasswordHash: hash,
		ProfileImage: s.defaultImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users("+userColumns+") VALUES(?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.ProfileImage, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: User already exists", ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	return user.Sanitized(), nil
}

// UpdateUser applies a partial update. A new password is re-hashed before it is stored.
func (s *UserService) UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error) {
	var (
		sets []string
		args []any
	)
	if update.FirstName != nil && *update.FirstName != "" {
		sets = append(sets, "first_name = ?")
		args = append(args, *update.FirstName)
	}
	if update.Email != nil && *update.Email != "" {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.Password != nil && *update.Password != "" {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooLong) {
				return models.User{}, fmt.Errorf("%w: Password must be at most 72 bytes", ErrValidation)
			}
			return models.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		sets = append(sets, "password_hash = ?")
		args = append(args, hash)
	}
	if len(sets) == 0 {
		return s.GetUserByID(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: Email is already in use", ErrConflict)
		}
		return models.User{}, fmt.Errorf("update user %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return models.User{}, err
	}
	return s.GetUserByID(ctx, id)
}

// SetProfileImage records the stored location of the user's profile image.
func (s *UserService) SetProfileImage(ctx context.Context, id, path string) (models.User, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET profile_image = ?, updated_at = ? WHERE id = ?", path, time.Now().UTC(), id)
	if err != nil {
		return models.User{}, fmt.Errorf("update profile image for %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return models.User{}, err
	}
	return s.GetUserByID(ctx, id)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: User not found", ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
