package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID            uint64
	Email         string
	Name          sql.NullString
	PasswordHash  string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Session is an audit record of an issued token. Verification is stateless
// and never reads this table; rows exist for inspection and cascade-delete
// with their user.
type Session struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
