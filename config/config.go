package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	HTTPHost          string
	HTTPPort          string
	MySQLDSN          string
	JWTSecret         string
	TokenTTL          string
	AppEnv            string
	AppURL            string
	PasswordMinLength int
	SMTP              SMTPConfig
}

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Configured reports whether enough SMTP settings are present to send real
// email. Without them the mailer degrades to a logging no-op.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.User != "" && s.Pass != ""
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTPHost:          getEnv("HTTP_HOST", ""),
		HTTPPort:          getEnv("HTTP_PORT", "3000"),
		MySQLDSN:          mysqlDSN,
		JWTSecret:         jwtSecret,
		TokenTTL:          getEnv("TOKEN_TTL", "7d"),
		AppEnv:            getEnv("APP_ENV", EnvDevelopment),
		AppURL:            getEnv("APP_URL", "http://localhost:5173"),
		PasswordMinLength: getIntEnv("PASSWORD_MIN_LENGTH", 8),
		SMTP: SMTPConfig{
			Host: getEnv("SMTP_HOST", ""),
			Port: getIntEnv("SMTP_PORT", 587),
			User: getEnv("SMTP_USER", ""),
			Pass: getEnv("SMTP_PASS", ""),
			From: getEnv("SMTP_FROM", "noreply@tivity.app"),
		},
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
