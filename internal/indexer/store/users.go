package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// CreateUser stores a new account. It fails with ErrUserExists when the
// name is taken.
func (s *SQLStore) CreateUser(ctx context.Context, name, passwordHash string) error {
	_, err := s.db.DB.ExecContext(ctx,
		s.db.Rebind("INSERT INTO users (name, password_hash) VALUES (?, ?)"),
		name, passwordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating user %q: %w", name, apperrors.ErrUserExists)
		}
		return unavailable("creating user", err)
	}
	return nil
}

// PasswordHash returns the stored hash for name, or ErrNotFound.
func (s *SQLStore) PasswordHash(ctx context.Context, name string) (string, error) {
	var hash string
	err := s.db.DB.QueryRowContext(ctx,
		s.db.Rebind("SELECT password_hash FROM users WHERE name = ?"), name,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %q: %w", name, apperrors.ErrNotFound)
	}
	if err != nil {
		return "", unavailable("loading user", err)
	}
	return hash, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
