package dto

import (
	"github.com/tivity-app/tivity-api/app/apperr"

	"github.com/labstack/echo/v4"
)

// SuccessResponse is the uniform success envelope: {request_id, data}.
type SuccessResponse struct {
	RequestID string `json:"request_id"`
	Data      any    `json:"data"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	RequestID string    `json:"request_id"`
	Error     ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message string                   `json:"message"`
	Code    apperr.Code              `json:"code"`
	Fields  map[string][]apperr.Code `json:"fields,omitempty"`
	Stack   string                   `json:"stack,omitempty"`
}

// RequestID returns the id assigned by the RequestID middleware.
func RequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// OK writes data wrapped in the success envelope.
func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, SuccessResponse{
		RequestID: RequestID(c),
		Data:      data,
	})
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PasswordResetResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token,omitempty"`
}

type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

type WelcomeResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp"`
}
