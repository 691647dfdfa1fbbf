package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/tivity-app/tivity-api/app/apperr"
	"github.com/tivity-app/tivity-api/app/dto"
	"github.com/tivity-app/tivity-api/app/middleware"
	"github.com/tivity-app/tivity-api/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type UserService interface {
	UpdateProfile(ctx context.Context, id uint64, name *string) (*dto.User, error)
	DeleteAccount(ctx context.Context, id uint64) error
}

type UserController struct {
	userService UserService
}

func NewUserController(userService UserService) *UserController {
	return &UserController{userService: userService}
}

// Me godoc
//
//	@Summary		Get the authenticated profile
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	dto.SuccessResponse{data=dto.User}
//	@Failure		401	{object}	dto.ErrorResponse
//	@Router			/users/me [get]
func (ctl *UserController) Me(c echo.Context) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperr.Unauthorized("")
	}
	return dto.OK(c, http.StatusOK, user)
}

// UpdateMe godoc
//
//	@Summary		Update the authenticated profile
//	@Description	Applies a partial update; omitted fields are left unchanged.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		dto.UpdateProfileRequest	true	"Profile patch"
//	@Success		200		{object}	dto.SuccessResponse{data=dto.User}
//	@Failure		401		{object}	dto.ErrorResponse
//	@Failure		404		{object}	dto.ErrorResponse
//	@Router			/users/me [patch]
func (ctl *UserController) UpdateMe(c echo.Context) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperr.Unauthorized("")
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ParseError("")
	}

	updated, err := ctl.userService.UpdateProfile(c.Request().Context(), user.ID, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return apperr.NotFound("User not found")
		}
		return err
	}

	logrus.WithField("user_id", user.ID).Info("Profile updated")
	return dto.OK(c, http.StatusOK, updated)
}

// DeleteMe godoc
//
//	@Summary		Delete the authenticated account
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	dto.SuccessResponse{data=dto.DeletedResponse}
//	@Failure		401	{object}	dto.ErrorResponse
//	@Router			/users/me [delete]
func (ctl *UserController) DeleteMe(c echo.Context) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperr.Unauthorized("")
	}

	if err := ctl.userService.DeleteAccount(c.Request().Context(), user.ID); err != nil {
		return err
	}

	logrus.WithField("user_id", user.ID).Info("Account deleted")
	return dto.OK(c, http.StatusOK, dto.DeletedResponse{Deleted: true})
}
