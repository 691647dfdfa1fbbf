package dto

import (
	"time"

	"github.com/tivity-app/tivity-api/app/entity"
)

// User is the outward-facing representation. It deliberately has no
// password field; converting through it is the only way user data leaves
// the service boundary.
type User struct {
	ID            uint64    `json:"id"`
	Email         string    `json:"email"`
	Name          *string   `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewUser(u *entity.User) *User {
	var name *string
	if u.Name.Valid {
		n := u.Name.String
		name = &n
	}
	return &User{
		ID:            u.ID,
		Email:         u.Email,
		Name:          name,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
