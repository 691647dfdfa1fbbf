package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tivity-app/tivity-api/app/dto"
	"github.com/tivity-app/tivity-api/app/entity"
	"github.com/tivity-app/tivity-api/app/token"
	"github.com/tivity-app/tivity-api/config"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = token.ErrInvalidToken
	ErrUserNotFound       = errors.New("user not found")
)

const (
	verifyEmailTTL   = "24h"
	passwordResetTTL = "1h"
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateName(ctx context.Context, id uint64, name sql.NullString) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	SetEmailVerified(ctx context.Context, id uint64, verified bool) error
	Delete(ctx context.Context, id uint64) error
}

type sessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type mailDispatcher interface {
	SendWelcome(to, username string)
	SendEmailVerification(to, verifyToken string)
	SendPasswordReset(to, resetToken string)
}

type AsyncRunner func(task func())

type AuthServiceOption func(*AuthService)

// WithAsyncRunner replaces the goroutine runner used for background work;
// tests pass a synchronous runner.
func WithAsyncRunner(runner AsyncRunner) AuthServiceOption {
	return func(s *AuthService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

type AuthService struct {
	userRepo    userRepository
	sessionRepo sessionRepository
	tokens      *token.Service
	mailer      mailDispatcher
	cfg         *config.Config
	asyncRunner AsyncRunner
}

func NewAuthService(
	userRepo userRepository,
	sessionRepo sessionRepository,
	tokens *token.Service,
	mailer mailDispatcher,
	cfg *config.Config,
	opts ...AuthServiceOption,
) *AuthService {
	svc := &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		mailer:      mailer,
		cfg:         cfg,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Register creates a user, issues a session token and dispatches the
// welcome and verification emails. The duplicate check races against
// concurrent registrations; the unique index on users.email is the
// backstop, surfaced here as ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*dto.User, string, error) {
	if !dto.IsValidEmail(email) {
		return nil, "", ErrInvalidEmail
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	user := &entity.User{
		Email:         email,
		Name:          sql.NullString{String: name, Valid: name != ""},
		PasswordHash:  passwordHash,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err = s.userRepo.Create(ctx, user); err != nil {
		if isDuplicateEntry(err) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	sessionToken, err := s.tokens.Generate(&token.Claims{UserID: user.ID, Email: user.Email}, s.cfg.TokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.recordSession(user.ID, sessionToken)

	verifyToken, err := s.tokens.Generate(&token.Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Purpose: token.PurposeEmailVerify,
	}, verifyEmailTTL)
	if err != nil {
		return nil, "", err
	}

	if name != "" {
		s.mailer.SendWelcome(user.Email, name)
	}
	s.mailer.SendEmailVerification(user.Email, verifyToken)

	return dto.NewUser(user), sessionToken, nil
}

// Login returns the same ErrInvalidCredentials for an unknown email and a
// wrong password so the error text cannot be used for user enumeration.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	sessionToken, err := s.tokens.Generate(&token.Claims{UserID: user.ID, Email: user.Email}, s.cfg.TokenTTL)
	if err != nil {
		return nil, "", err
	}
	s.recordSession(user.ID, sessionToken)

	return dto.NewUser(user), sessionToken, nil
}

// VerifyAuth validates a session token and reloads the user it names.
// It returns (nil, nil) for an invalid, expired, purpose-scoped or
// orphaned token; the HTTP layer turns nil into 401. Reloading means a
// deleted account is rejected even while its token is still unexpired.
func (s *AuthService) VerifyAuth(ctx context.Context, tokenString string) (*dto.User, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil || claims.UserID == 0 || claims.Purpose != "" {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	return dto.NewUser(user), nil
}

// VerifyEmail consumes an email-verification token and marks the account
// verified.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenString string) (*dto.User, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil || claims.Purpose != token.PurposeEmailVerify {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	if err = s.userRepo.SetEmailVerified(ctx, user.ID, true); err != nil {
		return nil, err
	}
	user.EmailVerified = true

	return dto.NewUser(user), nil
}

// RequestPasswordReset issues a purpose-scoped reset token and emails it.
// Tokens are stateless; nothing is stored server-side.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	resetToken, err := s.tokens.Generate(&token.Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Purpose: token.PurposePasswordReset,
	}, passwordResetTTL)
	if err != nil {
		return "", err
	}

	s.mailer.SendPasswordReset(user.Email, resetToken)

	return resetToken, nil
}

// ResetPassword consumes a reset token and replaces the stored digest.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil || claims.Purpose != token.PurposePasswordReset {
		return ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, user.ID, passwordHash)
}

// recordSession writes an audit row for the issued token and purges
// expired rows, off the request path. Verification never reads sessions,
// so failures here are logged and otherwise ignored.
func (s *AuthService) recordSession(userID uint64, sessionToken string) {
	expiresAt := time.Now().Add(token.ParseTTL(s.cfg.TokenTTL))
	s.asyncRunner(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := s.sessionRepo.DeleteExpired(ctx); err != nil {
			logrus.WithError(err).Error("failed to purge expired sessions")
		}

		session := &entity.Session{
			UserID:    userID,
			Token:     sessionToken,
			ExpiresAt: expiresAt,
			CreatedAt: time.Now(),
		}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("failed to record session")
		}
	})
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
