package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/favorite-products/internal/catalog"
	"github.com/tair/favorite-products/internal/favorite/domain"
	"github.com/tair/favorite-products/internal/favorite/usecase/command"
	product "github.com/tair/favorite-products/internal/product/domain"
	"github.com/tair/favorite-products/kafka"
)

type pair struct {
	userID    uint
	productID int
}

// fakeFavoriteRepo is an in-memory FavoriteRepository enforcing the
// uniqueness of (user, product) the way the storage layer does
type fakeFavoriteRepo struct {
	favorites map[pair]*domain.Favorite
	nextID    uint
}

func newFakeFavoriteRepo() *fakeFavoriteRepo {
	return &fakeFavoriteRepo{favorites: make(map[pair]*domain.Favorite)}
}

func (r *fakeFavoriteRepo) Add(ctx context.Context, userID uint, productID int) (*domain.Favorite, error) {
	key := pair{userID, productID}
	if _, ok := r.favorites[key]; ok {
		return nil, domain.ErrAlreadyExists
	}
	r.nextID++
	fav := &domain.Favorite{ID: r.nextID, UserID: userID, ProductID: productID}
	r.favorites[key] = fav
	return fav, nil
}

func (r *fakeFavoriteRepo) Remove(ctx context.Context, userID uint, productID int) error {
	key := pair{userID, productID}
	if _, ok := r.favorites[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.favorites, key)
	return nil
}

func (r *fakeFavoriteRepo) IsFavorite(userID uint, productID int) (bool, error) {
	_, ok := r.favorites[pair{userID, productID}]
	return ok, nil
}

func (r *fakeFavoriteRepo) ListProducts(userID uint, limit, offset int) ([]product.Product, error) {
	return nil, nil
}

func (r *fakeFavoriteRepo) CountByUser(userID uint) (int64, error) {
	var n int64
	for key := range r.favorites {
		if key.userID == userID {
			n++
		}
	}
	return n, nil
}

// fakeResolver counts resolutions and serves a canned product or error
type fakeResolver struct {
	product *product.Product
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(ctx context.Context, apiID int) (*product.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

// fakeFavPublisher records favorite change events
type fakeFavPublisher struct {
	events []kafka.FavoriteChangedEvent
}

func (p *fakeFavPublisher) PublishFavoriteChanged(ctx context.Context, event kafka.FavoriteChangedEvent) error {
	p.events = append(p.events, event)
	return nil
}

func TestAddFavorite(t *testing.T) {
	backpack := &product.Product{APIID: 42, Title: "Backpack", Price: decimal.NewFromFloat(109.95)}

	t.Run("resolves the product and inserts the pair", func(t *testing.T) {
		repo := newFakeFavoriteRepo()
		res := &fakeResolver{product: backpack}
		publisher := &fakeFavPublisher{}
		handler := command.NewAddFavoriteHandler(repo, res, publisher)

		resolved, err := handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 1, ProductID: 42})

		require.NoError(t, err)
		assert.Equal(t, "Backpack", resolved.Title)
		assert.Equal(t, 1, res.calls)

		exists, _ := repo.IsFavorite(1, 42)
		assert.True(t, exists)

		require.Len(t, publisher.events, 1)
		assert.Equal(t, kafka.EventTypeFavoriteAdded, publisher.events[0].EventType)
		assert.Equal(t, uint(1), publisher.events[0].UserID)
		assert.Equal(t, 42, publisher.events[0].ProductID)
	})

	t.Run("re-favoriting surfaces ErrAlreadyExists and keeps one record", func(t *testing.T) {
		repo := newFakeFavoriteRepo()
		res := &fakeResolver{product: backpack}
		handler := command.NewAddFavoriteHandler(repo, res, nil)

		_, err := handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 1, ProductID: 42})
		require.NoError(t, err)

		_, err = handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 1, ProductID: 42})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		count, _ := repo.CountByUser(1)
		assert.Equal(t, int64(1), count)
	})

	t.Run("the same product can be favorited by different users", func(t *testing.T) {
		repo := newFakeFavoriteRepo()
		res := &fakeResolver{product: backpack}
		handler := command.NewAddFavoriteHandler(repo, res, nil)

		_, err := handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 1, ProductID: 42})
		require.NoError(t, err)
		_, err = handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 2, ProductID: 42})
		require.NoError(t, err)
	})

	t.Run("unresolvable product maps to ErrProductNotFound and no insert", func(t *testing.T) {
		repo := newFakeFavoriteRepo()
		res := &fakeResolver{err: catalog.ErrNotFound}
		handler := command.NewAddFavoriteHandler(repo, res, nil)

		_, err := handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 1, ProductID: 999})

		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		count, _ := repo.CountByUser(1)
		assert.Zero(t, count)
	})

	t.Run("transient catalog failure propagates without an insert", func(t *testing.T) {
		repo := newFakeFavoriteRepo()
		res := &fakeResolver{err: &catalog.TransientError{Op: "fetch product", Err: errors.New("connection refused")}}
		handler := command.NewAddFavoriteHandler(repo, res, nil)

		_, err := handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 1, ProductID: 42})

		require.Error(t, err)
		assert.True(t, catalog.IsTransient(err))
		count, _ := repo.CountByUser(1)
		assert.Zero(t, count)
	})

	t.Run("invalid product id fails before any resolution", func(t *testing.T) {
		repo := newFakeFavoriteRepo()
		res := &fakeResolver{err: command.ErrInvalidProductID}
		handler := command.NewAddFavoriteHandler(repo, res, nil)

		_, err := handler.Handle(context.Background(), command.AddFavoriteCommand{UserID: 1, ProductID: -1})

		assert.ErrorIs(t, err, command.ErrInvalidProductID)
	})
}
