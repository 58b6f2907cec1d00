package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// CreateUser inserts a user; a taken email is a Conflict
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role, created_at, last_login)
		VALUES (:id, :email, :display_name, :password_hash, :role, :created_at, :last_login)`, u)
	if err != nil {
		return conflictOr(err, "email already registered")
	}
	return nil
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundError("user", email)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundError("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserRole changes a user's role
func (s *Store) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET role = $1 WHERE id = $2", role, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return expectOneRow(res, "user", id)
}

// TouchLastLogin records a successful sign-in
func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = $1 WHERE id = $2", at, id)
	return err
}
