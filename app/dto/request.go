package dto

import (
	"regexp"
	"strings"

	"github.com/tivity-app/tivity-api/app/apperr"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Name     *string `json:"name,omitempty"`
	Password string  `json:"password"`
}

func (r *RegisterRequest) Validate(passwordMinLength int) *apperr.Error {
	fields := map[string][]apperr.Code{}

	switch {
	case strings.TrimSpace(r.Email) == "":
		fields["email"] = append(fields["email"], apperr.CodeRequired)
	case !IsValidEmail(r.Email):
		fields["email"] = append(fields["email"], apperr.CodeInvalidFormat)
	}

	switch {
	case r.Password == "":
		fields["password"] = append(fields["password"], apperr.CodeRequired)
	case len(r.Password) < passwordMinLength:
		fields["password"] = append(fields["password"], apperr.CodeMinLength)
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() *apperr.Error {
	fields := map[string][]apperr.Code{}

	switch {
	case strings.TrimSpace(r.Email) == "":
		fields["email"] = append(fields["email"], apperr.CodeRequired)
	case !IsValidEmail(r.Email):
		fields["email"] = append(fields["email"], apperr.CodeInvalidFormat)
	}
	if r.Password == "" {
		fields["password"] = append(fields["password"], apperr.CodeRequired)
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

type UpdateProfileRequest struct {
	Name *string `json:"name,omitempty"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

func (r *VerifyEmailRequest) Validate() *apperr.Error {
	if strings.TrimSpace(r.Token) == "" {
		return apperr.Validation(map[string][]apperr.Code{"token": {apperr.CodeRequired}})
	}
	return nil
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

func (r *RequestPasswordResetRequest) Validate() *apperr.Error {
	fields := map[string][]apperr.Code{}

	switch {
	case strings.TrimSpace(r.Email) == "":
		fields["email"] = append(fields["email"], apperr.CodeRequired)
	case !IsValidEmail(r.Email):
		fields["email"] = append(fields["email"], apperr.CodeInvalidFormat)
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r *ResetPasswordRequest) Validate(passwordMinLength int) *apperr.Error {
	fields := map[string][]apperr.Code{}

	if strings.TrimSpace(r.Token) == "" {
		fields["token"] = append(fields["token"], apperr.CodeRequired)
	}
	switch {
	case r.NewPassword == "":
		fields["new_password"] = append(fields["new_password"], apperr.CodeRequired)
	case len(r.NewPassword) < passwordMinLength:
		fields["new_password"] = append(fields["new_password"], apperr.CodeMinLength)
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}
