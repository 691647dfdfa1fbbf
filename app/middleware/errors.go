package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/tivity-app/tivity-api/app/apperr"
	"github.com/tivity-app/tivity-api/app/dto"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// NewErrorHandler builds the central Echo error handler. Every error leaves
// the API as the uniform envelope {request_id, error:{message, code,
// fields?, stack?}}. Internal errors keep their detail (and a stack) only
// outside production.
func NewErrorHandler(isProduction bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		requestID := dto.RequestID(c)
		status := http.StatusInternalServerError
		body := dto.ErrorBody{
			Message: "Internal Server Error",
			Code:    apperr.CodeInternalError,
		}

		var appErr *apperr.Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &appErr):
			status = appErr.Status
			body = dto.ErrorBody{
				Message: appErr.Message,
				Code:    appErr.Code,
				Fields:  appErr.Fields,
			}
		case errors.As(err, &httpErr):
			message := fmt.Sprintf("%v", httpErr.Message)
			switch httpErr.Code {
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				status = http.StatusNotFound
				body = dto.ErrorBody{Message: "Resource Not Found", Code: apperr.CodeNotFound}
			case http.StatusBadRequest:
				status = http.StatusBadRequest
				body = dto.ErrorBody{Message: message, Code: apperr.CodeParseError}
			case http.StatusUnauthorized:
				status = http.StatusUnauthorized
				body = dto.ErrorBody{Message: message, Code: apperr.CodeUnauthorized}
			case http.StatusRequestTimeout:
				status = http.StatusRequestTimeout
				body = dto.ErrorBody{Message: message, Code: apperr.CodeTimeout}
			}
		}

		if status >= http.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     c.Request().Method,
				"uri":        c.Request().RequestURI,
			}).Error("request failed")

			if !isProduction {
				body.Message = err.Error()
				body.Stack = string(debug.Stack())
			}
		}

		if writeErr := c.JSON(status, dto.ErrorResponse{RequestID: requestID, Error: body}); writeErr != nil {
			logrus.WithError(writeErr).Error("failed to write error response")
		}
	}
}
