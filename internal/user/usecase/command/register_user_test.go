package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/favorite-products/internal/user/domain"
	"github.com/tair/favorite-products/internal/user/usecase/command"
	"github.com/tair/favorite-products/pkg/auth"
)

// fakeUserRepo is an in-memory UserRepository with a unique email index
type fakeUserRepo struct {
	users  map[uint]*domain.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*domain.User)}
}

func (r *fakeUserRepo) Create(user *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.ErrEmailInUse
		}
	}
	r.nextID++
	user.ID = r.nextID
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(id uint) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) FindAll(limit, offset int) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Delete(id uint) error {
	if _, ok := r.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Count() (int64, error) {
	return int64(len(r.users)), nil
}

func TestRegisterUser(t *testing.T) {
	t.Run("creates a customer with a hashed password", func(t *testing.T) {
		repo := newFakeUserRepo()
		handler := command.NewRegisterUserHandler(repo)

		user, err := handler.Handle(command.RegisterUserCommand{
			Name:     "Alice",
			Email:    "Alice@Example.com",
			Password: "secret123",
		})

		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, domain.RoleCustomer, user.Role)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "secret123", user.Password)
		assert.True(t, auth.CheckPassword(user.Password, "secret123"))
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		repo := newFakeUserRepo()
		handler := command.NewRegisterUserHandler(repo)

		_, err := handler.Handle(command.RegisterUserCommand{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
		require.NoError(t, err)

		_, err = handler.Handle(command.RegisterUserCommand{Name: "Other", Email: "alice@example.com", Password: "secret456"})
		assert.ErrorIs(t, err, domain.ErrEmailInUse)
	})

	t.Run("validation failures", func(t *testing.T) {
		repo := newFakeUserRepo()
		handler := command.NewRegisterUserHandler(repo)

		cases := []command.RegisterUserCommand{
			{Email: "a@b.com", Password: "secret123"},                              // no name
			{Name: "Alice", Email: "not-an-email", Password: "secret123"},          // bad email
			{Name: "Alice", Email: "a@b.com", Password: "short"},                   // short password
			{Name: "Alice", Email: "a@b.com", Password: "secret123", Role: "root"}, // unknown role
		}
		for _, cmd := range cases {
			_, err := handler.Handle(cmd)
			assert.Error(t, err)
		}

		count, _ := repo.Count()
		assert.Zero(t, count)
	})

	t.Run("explicit admin role is honored", func(t *testing.T) {
		repo := newFakeUserRepo()
		handler := command.NewRegisterUserHandler(repo)

		user, err := handler.Handle(command.RegisterUserCommand{
			Name:     "Root",
			Email:    "root@example.com",
			Password: "secret123",
			Role:     domain.RoleAdmin,
		})

		require.NoError(t, err)
		assert.True(t, user.IsAdmin())
	})
}
