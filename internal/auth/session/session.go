// Package session implements account registration, login and session
// validation for the search endpoints. Passwords are stored as bcrypt
// hashes; sessions are random 32-byte hex identifiers with a TTL, kept in
// Redis when it is configured and in process memory otherwise.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

const (
	maxUsernameLength = 64
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, name, passwordHash string) error
	PasswordHash(ctx context.Context, name string) (string, error)
}

// Store keeps live sessions.
type Store interface {
	Put(ctx context.Context, id, username string, ttl time.Duration) error
	Get(ctx context.Context, id string) (string, bool, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	TTL        time.Duration
	BcryptCost int
}

// Manager ties account storage and session storage together.
type Manager struct {
	users    UserStore
	sessions Store
	ttl      time.Duration
	cost     int
	logger   *slog.Logger
}

func NewManager(users UserStore, sessions Store, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		ttl:      opts.TTL,
		cost:     opts.BcryptCost,
		logger:   logger.WithComponent("session"),
	}
}

// Register creates an account.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := m.users.CreateUser(ctx, username, string(hash)); err != nil {
		return err
	}
	m.logger.Info("user registered", "username", username)
	return nil
}

// Login verifies the credentials and opens a session, returning its id.
// Unknown users and wrong passwords fail the same way.
func (m *Manager) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return "", err
	}
	hash, err := m.users.PasswordHash(ctx, username)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", apperrors.New(apperrors.ErrUnauthorized, http.StatusUnauthorized, "invalid username or password")
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", apperrors.New(apperrors.ErrUnauthorized, http.StatusUnauthorized, "invalid username or password")
	}

	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	if err := m.sessions.Put(ctx, id, username, m.ttl); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	m.logger.Info("user logged in", "username", username)
	return id, nil
}

// Validate returns the user owning the session. Unknown and expired ids
// report false without an error.
func (m *Manager) Validate(ctx context.Context, id string) (string, bool, error) {
	if id == "" {
		return "", false, nil
	}
	return m.sessions.Get(ctx, id)
}

func (m *Manager) Logout(ctx context.Context, id string) error {
	return m.sessions.Delete(ctx, id)
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", apperrors.ErrInvalidInput)
	case len(username) > maxUsernameLength:
		return fmt.Errorf("%w: username longer than %d characters", apperrors.ErrInvalidInput, maxUsernameLength)
	case password == "":
		return fmt.Errorf("%w: password is required", apperrors.ErrInvalidInput)
	case len(password) > maxPasswordLength:
		return fmt.Errorf("%w: password longer than %d bytes", apperrors.ErrInvalidInput, maxPasswordLength)
	}
	return nil
}

func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
