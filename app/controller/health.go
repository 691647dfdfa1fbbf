package controller

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/tivity-app/tivity-api/app/apperr"
	"github.com/tivity-app/tivity-api/app/dto"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const serviceName = "Tivity API"

type HealthController struct {
	db      *sql.DB
	version string
}

func NewHealthController(db *sql.DB, version string) *HealthController {
	return &HealthController{db: db, version: version}
}

// Welcome godoc
//
//	@Summary	API landing endpoint
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	dto.SuccessResponse{data=dto.WelcomeResponse}
//	@Router		/ [get]
func (ctl *HealthController) Welcome(c echo.Context) error {
	return dto.OK(c, http.StatusOK, dto.WelcomeResponse{
		Message: "Welcome to Tivity API",
		Version: ctl.version,
		Docs:    "/docs",
	})
}

// Health godoc
//
//	@Summary	Liveness probe
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	dto.SuccessResponse{data=dto.HealthResponse}
//	@Router		/health [get]
func (ctl *HealthController) Health(c echo.Context) error {
	return dto.OK(c, http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthDB godoc
//
//	@Summary		Database readiness probe
//	@Description	Runs a trivial query against the database and reports connectivity.
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	dto.SuccessResponse{data=dto.HealthResponse}
//	@Failure		503	{object}	dto.ErrorResponse
//	@Router			/health/db [get]
func (ctl *HealthController) HealthDB(c echo.Context) error {
	var one int
	if err := ctl.db.QueryRowContext(c.Request().Context(), "SELECT 1").Scan(&one); err != nil {
		logrus.WithError(err).Error("Database health check failed")
		return apperr.ServiceUnavailable("Database unreachable")
	}

	return dto.OK(c, http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Database:  "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
