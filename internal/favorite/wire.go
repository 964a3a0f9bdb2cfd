//go:build wireinject
// +build wireinject

package favorite

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/tair/favorite-products/internal/favorite/delivery/http"
	"github.com/tair/favorite-products/internal/favorite/domain"
	"github.com/tair/favorite-products/internal/favorite/repository"
	"github.com/tair/favorite-products/internal/favorite/usecase/command"
	"github.com/tair/favorite-products/internal/favorite/usecase/query"
)

// ProvideFavoriteRepository provides the favorite repository
func ProvideFavoriteRepository(db *gorm.DB) domain.FavoriteRepository {
	return repository.NewGormFavoriteRepository(db)
}

// Command Handlers Providers
func ProvideAddFavoriteHandler(
	repo domain.FavoriteRepository,
	res command.ProductResolver,
	publisher command.FavoritePublisher,
) *command.AddFavoriteHandler {
	return command.NewAddFavoriteHandler(repo, res, publisher)
}

func ProvideRemoveFavoriteHandler(
	repo domain.FavoriteRepository,
	publisher command.FavoritePublisher,
) *command.RemoveFavoriteHandler {
	return command.NewRemoveFavoriteHandler(repo, publisher)
}

// Query Handlers Providers
func ProvideListFavoritesHandler(repo domain.FavoriteRepository) *query.ListFavoritesHandler {
	return query.NewListFavoritesHandler(repo)
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideFavoriteRepository,
)

var HandlerSet = wire.NewSet(
	ProvideAddFavoriteHandler,
	ProvideRemoveFavoriteHandler,
	ProvideListFavoritesHandler,
)

// InitializeHTTPHandler initializes HTTP handler with all dependencies.
// The resolver and publisher are shared process-wide, so they come in
// from the caller instead of being constructed here.
func InitializeHTTPHandler(
	db *gorm.DB,
	res command.ProductResolver,
	publisher command.FavoritePublisher,
) (*http.FavoriteHandler, error) {
	wire.Build(
		RepositorySet,
		HandlerSet,
		http.NewFavoriteHandlerWithDI,
	)
	return nil, nil
}
