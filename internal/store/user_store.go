package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/opencart-qa/internal/model"
)

// SaveRegisteredUser inserts u and sets its ID and CreatedAt. A stored
// email returns ErrDuplicateEmail.
func (s *SQLStore) SaveRegisteredUser(ctx context.Context, u *model.RegisteredUser) error {
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("saving registered user: email is required")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO registered_users (
			firstname, lastname, email, telephone,
			password, confirm_password, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.Telephone,
		u.Password, u.ConfirmPassword, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("saving registered user %s: %w", u.Email, ErrDuplicateEmail)
		}
		return fmt.Errorf("saving registered user %s: %w", u.Email, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		u.ID = id
	}
	return nil
}

// GetRegisteredUser returns the user stored under email, or ErrNotFound.
func (s *SQLStore) GetRegisteredUser(ctx context.Context, email string) (*model.RegisteredUser, error) {
	var u model.RegisteredUser
	err := s.db.GetContext(ctx, &u, `
		SELECT id, firstname, lastname, email, telephone,
			password, confirm_password, created_at
		FROM registered_users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registered user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting registered user %s: %w", email, err)
	}
	return &u, nil
}

// StoreUserData inserts a back-office account and sets its ID.
func (s *SQLStore) StoreUserData(ctx context.Context, u *model.UserData) error {
	if u.Username == "" {
		return errors.New("storing user data: username is required")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO user_data (business_name, username, password, email)
		VALUES (?, ?, ?, ?)`,
		u.BusinessName, u.Username, u.Password, u.Email,
	)
	if err != nil {
		return fmt.Errorf("storing user data %s: %w", u.Username, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		u.ID = id
	}
	return nil
}

// ListUserData returns every stored back-office account in insertion
// order.
func (s *SQLStore) ListUserData(ctx context.Context) ([]model.UserData, error) {
	var users []model.UserData
	err := s.db.SelectContext(ctx, &users,
		"SELECT id, business_name, username, password, email FROM user_data ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing user data: %w", err)
	}
	return users, nil
}
