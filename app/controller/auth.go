package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/tivity-app/tivity-api/app/apperr"
	"github.com/tivity-app/tivity-api/app/dto"
	"github.com/tivity-app/tivity-api/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthService interface {
	Register(ctx context.Context, email, name, password string) (*dto.User, string, error)
	Login(ctx context.Context, email, password string) (*dto.User, string, error)
	VerifyEmail(ctx context.Context, tokenString string) (*dto.User, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, tokenString, newPassword string) error
}

type AuthController struct {
	authService       AuthService
	passwordMinLength int
}

func NewAuthController(authService AuthService, passwordMinLength int) *AuthController {
	return &AuthController{
		authService:       authService,
		passwordMinLength: passwordMinLength,
	}
}

// Register godoc
//
//	@Summary		Register a new account
//	@Description	Creates a user, returns the profile with a session token and dispatches the welcome and verification emails.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.RegisterRequest	true	"Registration payload"
//	@Success		200		{object}	dto.SuccessResponse{data=dto.AuthResponse}
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		409		{object}	dto.ErrorResponse
//	@Router			/auth/register [post]
func (ctl *AuthController) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ParseError("")
	}
	if verr := req.Validate(ctl.passwordMinLength); verr != nil {
		return verr
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	user, sessionToken, err := ctl.authService.Register(c.Request().Context(), req.Email, name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			return apperr.Validation(map[string][]apperr.Code{"email": {apperr.CodeInvalidFormat}})
		case errors.Is(err, service.ErrEmailTaken):
			logrus.WithField("email", req.Email).Warn("Registration attempt for existing email")
			return apperr.Conflict("Email already registered")
		default:
			return err
		}
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")
	return dto.OK(c, http.StatusOK, dto.AuthResponse{User: user, Token: sessionToken})
}

// Login godoc
//
//	@Summary		Authenticate with email and password
//	@Description	Verifies credentials and returns the profile with a fresh session token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.LoginRequest	true	"Login payload"
//	@Success		200		{object}	dto.SuccessResponse{data=dto.AuthResponse}
//	@Failure		400		{object}	dto.ErrorResponse
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/auth/login [post]
func (ctl *AuthController) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ParseError("")
	}
	if verr := req.Validate(); verr != nil {
		return verr
	}

	user, sessionToken, err := ctl.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Debug("Login rejected")
			return apperr.Unauthorized(err.Error())
		}
		return err
	}

	logrus.WithField("user_id", user.ID).Info("User logged in")
	return dto.OK(c, http.StatusOK, dto.AuthResponse{User: user, Token: sessionToken})
}

// VerifyEmail godoc
//
//	@Summary		Confirm an email address
//	@Description	Consumes a verification token and marks the account as verified.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.VerifyEmailRequest	true	"Verification payload"
//	@Success		200		{object}	dto.SuccessResponse{data=dto.User}
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/auth/verify-email [post]
func (ctl *AuthController) VerifyEmail(c echo.Context) error {
	var req dto.VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ParseError("")
	}
	if verr := req.Validate(); verr != nil {
		return verr
	}

	user, err := ctl.authService.VerifyEmail(c.Request().Context(), req.Token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return apperr.InvalidToken("")
		}
		return err
	}

	logrus.WithField("user_id", user.ID).Info("Email verified")
	return dto.OK(c, http.StatusOK, user)
}

// RequestPasswordReset godoc
//
//	@Summary		Request a password reset
//	@Description	Issues a reset token for the account. The response is the same whether or not the email exists.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.RequestPasswordResetRequest	true	"Reset request payload"
//	@Success		200		{object}	dto.SuccessResponse{data=dto.PasswordResetResponse}
//	@Failure		400		{object}	dto.ErrorResponse
//	@Router			/auth/request-password-reset [post]
func (ctl *AuthController) RequestPasswordReset(c echo.Context) error {
	var req dto.RequestPasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ParseError("")
	}
	if verr := req.Validate(); verr != nil {
		return verr
	}

	resetToken, err := ctl.authService.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			// Same body as the success path so the endpoint cannot be used
			// to probe which emails are registered.
			return dto.OK(c, http.StatusOK, dto.PasswordResetResponse{
				Message: "If the email exists, a reset link has been sent",
			})
		}
		return err
	}

	logrus.WithField("email", req.Email).Info("Password reset requested")
	return dto.OK(c, http.StatusOK, dto.PasswordResetResponse{
		Message:    "If the email exists, a reset link has been sent",
		ResetToken: resetToken,
	})
}

// ResetPassword godoc
//
//	@Summary		Reset a password
//	@Description	Consumes a reset token and replaces the account password.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ResetPasswordRequest	true	"Reset payload"
//	@Success		200		{object}	dto.SuccessResponse{data=dto.MessageResponse}
//	@Failure		401		{object}	dto.ErrorResponse
//	@Router			/auth/reset-password [post]
func (ctl *AuthController) ResetPassword(c echo.Context) error {
	var req dto.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ParseError("")
	}
	if verr := req.Validate(ctl.passwordMinLength); verr != nil {
		return verr
	}

	if err := ctl.authService.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return apperr.InvalidToken("")
		}
		return err
	}

	logrus.Info("Password reset completed")
	return dto.OK(c, http.StatusOK, dto.MessageResponse{Message: "Password updated"})
}
