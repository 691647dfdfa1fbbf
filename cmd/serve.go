package cmd

import (
	"database/sql"
	"net"

	"github.com/tivity-app/tivity-api/app/controller"
	"github.com/tivity-app/tivity-api/app/mail"
	"github.com/tivity-app/tivity-api/app/middleware"
	"github.com/tivity-app/tivity-api/app/repository"
	"github.com/tivity-app/tivity-api/app/service"
	"github.com/tivity-app/tivity-api/app/token"
	"github.com/tivity-app/tivity-api/config"
	_ "github.com/tivity-app/tivity-api/docs"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
)

const apiVersion = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the Tivity API.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogging(cfg)

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	if err := repository.ApplyMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to apply migrations")
	}

	dispatcher := mail.NewDispatcher(mail.NewSender(cfg.SMTP), cfg.AppURL)
	defer dispatcher.Close()

	tokens := token.NewService(cfg.JWTSecret)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	authService := service.NewAuthService(userRepo, sessionRepo, tokens, dispatcher, cfg)
	userService := service.NewUserService(userRepo)

	startHTTPServer(cfg, db, authService, userService)
}

func startHTTPServer(cfg *config.Config, db *sql.DB, authService *service.AuthService, userService *service.UserService) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.NewErrorHandler(cfg.IsProduction())

	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	healthController := controller.NewHealthController(db, apiVersion)
	authController := controller.NewAuthController(authService, cfg.PasswordMinLength)
	userController := controller.NewUserController(userService)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	e.GET("/", healthController.Welcome)
	e.GET("/health", healthController.Health)
	e.GET("/health/db", healthController.HealthDB)
	e.GET("/docs/*", echo.WrapHandler(httpSwagger.Handler()))

	auth := e.Group("/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.POST("/verify-email", authController.VerifyEmail)
	auth.POST("/request-password-reset", authController.RequestPasswordReset)
	auth.POST("/reset-password", authController.ResetPassword)

	users := e.Group("/users")
	users.Use(authMiddleware.RequireAuth)
	users.GET("/me", userController.Me)
	users.PATCH("/me", userController.UpdateMe)
	users.DELETE("/me", userController.DeleteMe)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
