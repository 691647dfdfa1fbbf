package middleware_test

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tivity-app/tivity-api/app/apperr"
	"github.com/tivity-app/tivity-api/app/middleware"
	"github.com/tivity-app/tivity-api/app/repository"
	"github.com/tivity-app/tivity-api/app/service"
	"github.com/tivity-app/tivity-api/app/token"
	"github.com/tivity-app/tivity-api/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
)

const findUserByIDQuery = `(?s)SELECT id, email, name, password, email_verified, created_at, updated_at\s+FROM users WHERE id = \?`

var userColumns = []string{"id", "email", "name", "password", "email_verified", "created_at", "updated_at"}

type noopMailer struct{}

func (noopMailer) SendWelcome(string, string)           {}
func (noopMailer) SendEmailVerification(string, string) {}
func (noopMailer) SendPasswordReset(string, string)     {}

func newMiddleware(t *testing.T) (*middleware.AuthMiddleware, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		TokenTTL:          "1h",
		PasswordMinLength: 8,
	}

	authService := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		token.NewService(cfg.JWTSecret),
		noopMailer{},
		cfg,
	)

	return middleware.NewAuthMiddleware(authService), mock, func() { _ = db.Close() }
}

func requireAuthError(t *testing.T, err error) *apperr.Error {
	t.Helper()

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	return appErr
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	authMiddleware, _, cleanup := newMiddleware(t)
	defer cleanup()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	appErr := requireAuthError(t, handler(ctx))
	if appErr.Status != http.StatusUnauthorized || appErr.Code != apperr.CodeUnauthorized {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %s", appErr.Status, appErr.Code)
	}
}

func TestRequireAuth_InvalidHeaderFormat(t *testing.T) {
	authMiddleware, _, cleanup := newMiddleware(t)
	defer cleanup()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	appErr := requireAuthError(t, handler(ctx))
	if appErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", appErr.Status)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	authMiddleware, _, cleanup := newMiddleware(t)
	defer cleanup()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	appErr := requireAuthError(t, handler(ctx))
	if appErr.Status != http.StatusUnauthorized || appErr.Code != apperr.CodeInvalidToken {
		t.Fatalf("expected 401 INVALID_TOKEN, got %d %s", appErr.Status, appErr.Code)
	}
}

func TestRequireAuth_SetsContextOnValidToken(t *testing.T) {
	authMiddleware, mock, cleanup := newMiddleware(t)
	defer cleanup()

	tokens := token.NewService("test-secret")
	tokenString, err := tokens.Generate(&token.Claims{UserID: 1, Email: "user@example.com"}, "1h")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	now := time.Now()
	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(mock.NewRows(userColumns).
			AddRow(1, "user@example.com", sql.NullString{}, "digest", true, now, now))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		user := middleware.UserFromContext(c)
		if user == nil || user.ID != 1 || user.Email != "user@example.com" {
			t.Fatalf("expected user 1 in context, got %+v", user)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRequireAuth_DeletedUserRejected(t *testing.T) {
	authMiddleware, mock, cleanup := newMiddleware(t)
	defer cleanup()

	tokens := token.NewService("test-secret")
	tokenString, err := tokens.Generate(&token.Claims{UserID: 9, Email: "gone@example.com"}, "1h")
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(9)).
		WillReturnRows(mock.NewRows(userColumns))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := authMiddleware.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	appErr := requireAuthError(t, handler(ctx))
	if appErr.Status != http.StatusUnauthorized || appErr.Code != apperr.CodeInvalidToken {
		t.Fatalf("expected 401 INVALID_TOKEN for deleted user, got %d %s", appErr.Status, appErr.Code)
	}
}
