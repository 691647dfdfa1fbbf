package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tivity-app/tivity-api/app/repository"
	"github.com/tivity-app/tivity-api/app/service"
	"github.com/tivity-app/tivity-api/app/token"
	"github.com/tivity-app/tivity-api/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"
)

const (
	findUserByEmailQuery       = `(?s)SELECT id, email, name, password, email_verified, created_at, updated_at\s+FROM users WHERE email = \?`
	findUserByIDQuery          = `(?s)SELECT id, email, name, password, email_verified, created_at, updated_at\s+FROM users WHERE id = \?`
	insertUserQuery            = `(?s)INSERT INTO users \(email, name, password, email_verified, created_at, updated_at\)\s+VALUES \(\?, \?, \?, \?, \?, \?\)`
	updatePasswordQuery        = `UPDATE users SET password = \?, updated_at = \? WHERE id = \?`
	setEmailVerifiedQuery      = `UPDATE users SET email_verified = \?, updated_at = \? WHERE id = \?`
	insertSessionQuery         = `(?s)INSERT INTO sessions \(user_id, token, expires_at, created_at\)\s+VALUES \(\?, \?, \?, \?\)`
	deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at < \?`
)

var userColumns = []string{"id", "email", "name", "password", "email_verified", "created_at", "updated_at"}

type sentEmail struct {
	kind  string
	to    string
	extra string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *fakeMailer) SendWelcome(to, username string) {
	m.record(sentEmail{kind: "welcome", to: to, extra: username})
}

func (m *fakeMailer) SendEmailVerification(to, verifyToken string) {
	m.record(sentEmail{kind: "verify", to: to, extra: verifyToken})
}

func (m *fakeMailer) SendPasswordReset(to, resetToken string) {
	m.record(sentEmail{kind: "reset", to: to, extra: resetToken})
}

func (m *fakeMailer) record(e sentEmail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
}

func (m *fakeMailer) emails() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		TokenTTL:          "1h",
		AppEnv:            config.EnvDevelopment,
		AppURL:            "http://localhost:5173",
		PasswordMinLength: 8,
	}
}

func newAuthService(t *testing.T) (*service.AuthService, sqlmock.Sqlmock, *fakeMailer, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	mailer := &fakeMailer{}
	svc := service.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		token.NewService("test-secret"),
		mailer,
		testConfig(),
		service.WithAsyncRunner(func(task func()) { task() }),
	)

	return svc, mock, mailer, func() { _ = db.Close() }
}

func hashFor(t *testing.T, password string) string {
	t.Helper()

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	return string(digest)
}

func userRow(mock sqlmock.Sqlmock, id uint64, email, digest string) *sqlmock.Rows {
	now := time.Now()
	return mock.NewRows(userColumns).
		AddRow(id, email, sql.NullString{String: "Alice", Valid: true}, digest, false, now, now)
}

func expectSessionRecording(mock sqlmock.Sqlmock, userID uint64) {
	mock.ExpectExec(deleteExpiredSessionsQuery).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertSessionQuery).
		WithArgs(userID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestRegister(t *testing.T) {
	svc, mock, mailer, cleanup := newAuthService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(mock.NewRows(userColumns))
	mock.ExpectExec(insertUserQuery).
		WillReturnResult(sqlmock.NewResult(7, 1))
	expectSessionRecording(mock, 7)

	user, sessionToken, err := svc.Register(context.Background(), "a@b.com", "Alice", "Passw0rd")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID != 7 || user.Email != "a@b.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Name == nil || *user.Name != "Alice" {
		t.Fatalf("expected name Alice, got %v", user.Name)
	}
	if user.EmailVerified {
		t.Fatalf("expected new account to be unverified")
	}

	claims, err := token.NewService("test-secret").Verify(sessionToken)
	if err != nil {
		t.Fatalf("issued token did not verify: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("expected token userId 7, got %d", claims.UserID)
	}

	emails := mailer.emails()
	if len(emails) != 2 {
		t.Fatalf("expected welcome and verification emails, got %d", len(emails))
	}
	if emails[0].kind != "welcome" || emails[1].kind != "verify" {
		t.Fatalf("unexpected email kinds %+v", emails)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterWithoutNameSkipsWelcomeEmail(t *testing.T) {
	svc, mock, mailer, cleanup := newAuthService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(mock.NewRows(userColumns))
	mock.ExpectExec(insertUserQuery).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectSessionRecording(mock, 1)

	if _, _, err := svc.Register(context.Background(), "a@b.com", "", "Passw0rd"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	emails := mailer.emails()
	if len(emails) != 1 || emails[0].kind != "verify" {
		t.Fatalf("expected only the verification email, got %+v", emails)
	}
}

func TestRegisterRejectsInvalidEmail(t *testing.T) {
	svc, _, _, cleanup := newAuthService(t)
	defer cleanup()

	_, _, err := svc.Register(context.Background(), "not-an-email", "", "Passw0rd")
	if !errors.Is(err, service.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, mock, mailer, cleanup := newAuthService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(userRow(mock, 1, "a@b.com", "digest"))

	_, _, err := svc.Register(context.Background(), "a@b.com", "", "Passw0rd")
	if !errors.Is(err, service.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(mailer.emails()) != 0 {
		t.Fatalf("expected no email for failed registration")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterMapsUniqueConstraintToEmailTaken(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	// The check-then-insert window can lose the race; the unique index
	// fires and the driver error must still surface as ErrEmailTaken.
	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(mock.NewRows(userColumns))
	mock.ExpectExec(insertUserQuery).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, _, err := svc.Register(context.Background(), "a@b.com", "", "Passw0rd")
	if !errors.Is(err, service.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	digest := hashFor(t, "Passw0rd")
	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(userRow(mock, 7, "a@b.com", digest))
	expectSessionRecording(mock, 7)

	user, sessionToken, err := svc.Login(context.Background(), "a@b.com", "Passw0rd")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("expected user 7, got %d", user.ID)
	}
	if sessionToken == "" {
		t.Fatalf("expected a session token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoginErrorsAreEnumerationResistant(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("unknown@b.com").
		WillReturnRows(mock.NewRows(userColumns))
	_, _, unknownErr := svc.Login(context.Background(), "unknown@b.com", "Passw0rd")

	digest := hashFor(t, "Passw0rd")
	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(userRow(mock, 7, "a@b.com", digest))
	_, _, wrongPassErr := svc.Login(context.Background(), "a@b.com", "wrong-password")

	if !errors.Is(unknownErr, service.ErrInvalidCredentials) || !errors.Is(wrongPassErr, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", unknownErr, wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Fatalf("error messages differ: %q vs %q", unknownErr, wrongPassErr)
	}
}

func TestResultsNeverIncludePassword(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	digest := hashFor(t, "Passw0rd")
	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(userRow(mock, 7, "a@b.com", digest))
	expectSessionRecording(mock, 7)

	user, _, err := svc.Login(context.Background(), "a@b.com", "Passw0rd")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	payload, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	lower := strings.ToLower(string(payload))
	if strings.Contains(lower, "password") || strings.Contains(lower, digest) {
		t.Fatalf("serialized user leaks the digest: %s", payload)
	}
}

func TestVerifyAuth(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	tokens := token.NewService("test-secret")
	sessionToken, err := tokens.Generate(&token.Claims{UserID: 7, Email: "a@b.com"}, "1h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(7)).
		WillReturnRows(userRow(mock, 7, "a@b.com", "digest"))

	user, err := svc.VerifyAuth(context.Background(), sessionToken)
	if err != nil {
		t.Fatalf("verify auth failed: %v", err)
	}
	if user == nil || user.ID != 7 {
		t.Fatalf("expected user 7, got %+v", user)
	}
}

func TestVerifyAuthRejectsDeletedUser(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	sessionToken, err := token.NewService("test-secret").Generate(&token.Claims{UserID: 7}, "1h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// Token is still unexpired, but the row is gone: existence is
	// re-checked on every verification, so the caller gets nil.
	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(7)).
		WillReturnRows(mock.NewRows(userColumns))

	user, err := svc.VerifyAuth(context.Background(), sessionToken)
	if err != nil {
		t.Fatalf("verify auth errored: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user for deleted account, got %+v", user)
	}
}

func TestVerifyAuthRejectsBadTokens(t *testing.T) {
	svc, _, _, cleanup := newAuthService(t)
	defer cleanup()

	tokens := token.NewService("test-secret")
	purposeToken, err := tokens.Generate(&token.Claims{UserID: 7, Purpose: token.PurposePasswordReset}, "1h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	forged, err := token.NewService("other-secret").Generate(&token.Claims{UserID: 7}, "1h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for name, input := range map[string]string{
		"garbage":       "not-a-token",
		"forged":        forged,
		"purpose-token": purposeToken,
	} {
		user, err := svc.VerifyAuth(context.Background(), input)
		if err != nil || user != nil {
			t.Fatalf("%s: expected (nil, nil), got (%+v, %v)", name, user, err)
		}
	}
}

func TestVerifyEmail(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	verifyToken, err := token.NewService("test-secret").Generate(&token.Claims{
		UserID:  7,
		Purpose: token.PurposeEmailVerify,
	}, "24h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(7)).
		WillReturnRows(userRow(mock, 7, "a@b.com", "digest"))
	mock.ExpectExec(setEmailVerifiedQuery).
		WithArgs(true, sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := svc.VerifyEmail(context.Background(), verifyToken)
	if err != nil {
		t.Fatalf("verify email failed: %v", err)
	}
	if !user.EmailVerified {
		t.Fatalf("expected email_verified to be set")
	}
}

func TestVerifyEmailRejectsSessionToken(t *testing.T) {
	svc, _, _, cleanup := newAuthService(t)
	defer cleanup()

	sessionToken, err := token.NewService("test-secret").Generate(&token.Claims{UserID: 7}, "1h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := svc.VerifyEmail(context.Background(), sessionToken); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRequestPasswordReset(t *testing.T) {
	svc, mock, mailer, cleanup := newAuthService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("a@b.com").
		WillReturnRows(userRow(mock, 7, "a@b.com", "digest"))

	resetToken, err := svc.RequestPasswordReset(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("request reset failed: %v", err)
	}

	claims, err := token.NewService("test-secret").Verify(resetToken)
	if err != nil {
		t.Fatalf("reset token did not verify: %v", err)
	}
	if claims.Purpose != token.PurposePasswordReset {
		t.Fatalf("expected reset purpose, got %q", claims.Purpose)
	}

	emails := mailer.emails()
	if len(emails) != 1 || emails[0].kind != "reset" || emails[0].extra != resetToken {
		t.Fatalf("expected reset email carrying the token, got %+v", emails)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	svc, mock, mailer, cleanup := newAuthService(t)
	defer cleanup()

	mock.ExpectQuery(findUserByEmailQuery).
		WithArgs("unknown@b.com").
		WillReturnRows(mock.NewRows(userColumns))

	_, err := svc.RequestPasswordReset(context.Background(), "unknown@b.com")
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(mailer.emails()) != 0 {
		t.Fatalf("expected no email for unknown address")
	}
}

func TestResetPassword(t *testing.T) {
	svc, mock, _, cleanup := newAuthService(t)
	defer cleanup()

	resetToken, err := token.NewService("test-secret").Generate(&token.Claims{
		UserID:  7,
		Purpose: token.PurposePasswordReset,
	}, "1h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(7)).
		WillReturnRows(userRow(mock, 7, "a@b.com", "old-digest"))
	mock.ExpectExec(updatePasswordQuery).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.ResetPassword(context.Background(), resetToken, "NewPassw0rd"); err != nil {
		t.Fatalf("reset password failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResetPasswordRejectsWrongPurpose(t *testing.T) {
	svc, _, _, cleanup := newAuthService(t)
	defer cleanup()

	verifyToken, err := token.NewService("test-secret").Generate(&token.Claims{
		UserID:  7,
		Purpose: token.PurposeEmailVerify,
	}, "24h")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if err := svc.ResetPassword(context.Background(), verifyToken, "NewPassw0rd"); !errors.Is(err, service.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
