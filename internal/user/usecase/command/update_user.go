package command

import (
	"fmt"
	"strings"

	"github.com/tair/favorite-products/internal/user/domain"
	"github.com/tair/favorite-products/pkg/auth"
)

// UpdateUserCommand updates a user; nil fields are left untouched
type UpdateUserCommand struct {
	ID       uint
	Name     *string
	Email    *string
	Password *string
}

// UpdateUserHandler handles the update user command
type UpdateUserHandler struct {
	repo domain.UserRepository
}

// NewUpdateUserHandler creates a new update user handler
func NewUpdateUserHandler(repo domain.UserRepository) *UpdateUserHandler {
	return &UpdateUserHandler{repo: repo}
}

// Handle executes the update user command
func (h *UpdateUserHandler) Handle(cmd UpdateUserCommand) (*domain.User, error) {
	if cmd.ID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	user, err := h.repo.FindByID(cmd.ID)
	if err != nil {
		return nil, err
	}

	if cmd.Email != nil && !strings.EqualFold(*cmd.Email, user.Email) {
		if existing, _ := h.repo.FindByEmail(*cmd.Email); existing != nil {
			return nil, domain.ErrEmailInUse
		}
		user.Email = strings.ToLower(*cmd.Email)
	}
	if cmd.Name != nil {
		user.Name = *cmd.Name
	}
	if cmd.Password != nil {
		if len(*cmd.Password) < 6 {
			return nil, fmt.Errorf("password must be at least 6 characters")
		}
		hashed, err := auth.HashPassword(*cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hashed
	}

	if err := h.repo.Update(user); err != nil {
		return nil, err
	}

	return user, nil
}
