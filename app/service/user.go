package service

import (
	"context"
	"database/sql"

	"github.com/tivity-app/tivity-api/app/dto"
)

// UserService is plain profile CRUD. Everything it returns goes through
// dto.NewUser, which drops the password digest.
type UserService struct {
	userRepo userRepository
}

func NewUserService(userRepo userRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) FindByID(ctx context.Context, id uint64) (*dto.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	return dto.NewUser(user), nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*dto.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	return dto.NewUser(user), nil
}

// UpdateProfile applies a partial update. Only the display name is an
// allowed field; a nil name leaves the row untouched.
func (s *UserService) UpdateProfile(ctx context.Context, id uint64, name *string) (*dto.User, error) {
	if name != nil {
		value := sql.NullString{String: *name, Valid: *name != ""}
		if err := s.userRepo.UpdateName(ctx, id, value); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return dto.NewUser(user), nil
}

func (s *UserService) DeleteAccount(ctx context.Context, id uint64) error {
	return s.userRepo.Delete(ctx, id)
}

func (s *UserService) MarkEmailVerified(ctx context.Context, id uint64) (*dto.User, error) {
	if err := s.userRepo.SetEmailVerified(ctx, id, true); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return dto.NewUser(user), nil
}
