// Package users implements profile management for the authenticated user:
// reading and updating the profile, deleting the account with its task
// cascade, and avatar storage.
package users

import (
	"context"
	"strings"

	"github.com/user/taskman-go/apperror"
	"github.com/user/taskman-go/auth"
)

// maxAvatarSize bounds avatar uploads to 1 MiB.
const maxAvatarSize = 1 << 20

// UserService provides profile operations on top of the credential store.
type UserService struct {
	store auth.UserStore
}

// NewUserService creates a new UserService.
func NewUserService(store auth.UserStore) *UserService {
	return &UserService{store: store}
}

// UpdateProfile applies the allow-listed partial fields to the user's profile
// with the same validation rules as registration, then persists. An email
// change is lowercased and may surface a ConflictError from the store.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, req UpdateProfileRequest) (*auth.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperror.NewValidationError("name is required", nil)
		}
		user.Name = name
	}
	if req.Age != nil {
		if *req.Age < 0 {
			return nil, apperror.NewValidationError("enter a valid age", nil)
		}
		user.Age = *req.Age
	}
	if req.Email != nil {
		if err := auth.ValidateEmail(*req.Email); err != nil {
			return nil, err
		}
		user.Email = strings.ToLower(*req.Email)
	}
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			return nil, err
		}
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.HashedPassword = hashed
	}

	return s.store.UpdateUser(ctx, user)
}

// DeleteAccount removes the user and, in the same transaction, every task and
// token the user owns.
func (s *UserService) DeleteAccount(ctx context.Context, userID int) error {
	return s.store.DeleteUserCascade(ctx, userID)
}

// SetAvatar validates and stores the avatar bytes for the user.
func (s *UserService) SetAvatar(ctx context.Context, userID int, data []byte) error {
	if len(data) == 0 {
		return apperror.NewValidationError("avatar image is required", nil)
	}
	if len(data) > maxAvatarSize {
		return apperror.NewValidationError("avatar must be at most 1MB", nil)
	}
	return s.store.SetAvatar(ctx, userID, data)
}

// ClearAvatar removes the user's avatar.
func (s *UserService) ClearAvatar(ctx context.Context, userID int) error {
	return s.store.ClearAvatar(ctx, userID)
}

// GetAvatar fetches the avatar bytes for any user by id.
func (s *UserService) GetAvatar(ctx context.Context, userID int) ([]byte, error) {
	return s.store.GetAvatar(ctx, userID)
}
