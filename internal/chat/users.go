package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chatforge/chatforge-golang/internal/models"
)

// UserStore reads user rows for the coordinator. Writes to the usage
// counter go through the UsageGuard, not here.
type UserStore struct {
	DB *sql.DB
}

// GetByID fetches a user snapshot. Absence is a not_found turn error.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, hashed_password, name, image, is_active,
		       subscription, api_usage, api_limit, created_at, updated_at
		FROM users
		WHERE id = ?`

	var user models.User
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Image,
		&user.IsActive, &user.Subscription, &user.APIUsage, &user.APILimit,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, turnErrorf(KindNotFound, "user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// GetByEmail fetches a user for login. Absence is reported as a plain
// sql.ErrNoRows so the login handler can answer with a generic 401.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, hashed_password, name, image, is_active,
		       subscription, api_usage, api_limit, created_at, updated_at
		FROM users
		WHERE email = ?`

	var user models.User
	err := s.DB.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Image,
		&user.IsActive, &user.Subscription, &user.APIUsage, &user.APILimit,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user row and returns it.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users
		(id, email, hashed_password, name, image, is_active, subscription,
		 api_usage, api_limit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.DB.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Image,
		user.IsActive, user.Subscription, user.APIUsage, user.APILimit,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
