package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/auth/session"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

type stubExecutor struct{}

func (stubExecutor) Execute(_ context.Context, query string, _ int) (*executor.SearchResult, error) {
	return &executor.SearchResult{Query: query}, nil
}

type userMap map[string]string

func (u userMap) CreateUser(_ context.Context, name, hash string) error {
	u[name] = hash
	return nil
}

func (u userMap) PasswordHash(_ context.Context, name string) (string, error) {
	h, ok := u[name]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return h, nil
}

func TestSearchRequiresSession(t *testing.T) {
	sessions := session.NewManager(userMap{}, session.NewMemoryStore(), session.Options{
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	ctx := context.Background()
	require.NoError(t, sessions.Register(ctx, "ada", "secret"))
	id, err := sessions.Login(ctx, "ada", "secret")
	require.NoError(t, err)

	h := handler.New(handler.Deps{Executor: stubExecutor{}})
	srv := New(h, health.NewChecker(), Options{
		Sessions:       sessions,
		Limiter:        middleware.NewRateLimiter(100, 100),
		RequestTimeout: time.Second,
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat&session_id="+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenWithoutSessions(t *testing.T) {
	h := handler.New(handler.Deps{Executor: stubExecutor{}})
	srv := New(h, health.NewChecker(), Options{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=cat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/search", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
