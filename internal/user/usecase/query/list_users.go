package query

import (
	"fmt"

	"github.com/tair/favorite-products/internal/user/domain"
)

// ListUsersQuery represents the query to list users
type ListUsersQuery struct {
	Limit  int
	Offset int
}

// UsersPage is a page of users plus the total count
type UsersPage struct {
	Users []domain.User `json:"users"`
	Total int64         `json:"total"`
}

// ListUsersHandler handles the list users query
type ListUsersHandler struct {
	repo domain.UserRepository
}

// NewListUsersHandler creates a new list users handler
func NewListUsersHandler(repo domain.UserRepository) *ListUsersHandler {
	return &ListUsersHandler{repo: repo}
}

// Handle executes the list users query
func (h *ListUsersHandler) Handle(q ListUsersQuery) (*UsersPage, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	users, err := h.repo.FindAll(q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	total, err := h.repo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return &UsersPage{Users: users, Total: total}, nil
}
