package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/favorite-products/internal/catalog"
	"github.com/tair/favorite-products/internal/favorite/domain"
	product "github.com/tair/favorite-products/internal/product/domain"
	"github.com/tair/favorite-products/internal/product/resolver"
	"github.com/tair/favorite-products/kafka"
	"github.com/tair/favorite-products/pkg/logger"
)

// ErrInvalidProductID is returned for non-positive product identifiers
var ErrInvalidProductID = resolver.ErrInvalidID

// ProductResolver is the cache-or-fetch dependency of the add path
type ProductResolver interface {
	Resolve(ctx context.Context, apiID int) (*product.Product, error)
}

// FavoritePublisher publishes favorite change events; may be nil
type FavoritePublisher interface {
	PublishFavoriteChanged(ctx context.Context, event kafka.FavoriteChangedEvent) error
}

// AddFavoriteCommand represents the command to favorite a product
type AddFavoriteCommand struct {
	UserID    uint
	ProductID int
}

// AddFavoriteHandler handles the add favorite command
type AddFavoriteHandler struct {
	repo      domain.FavoriteRepository
	resolver  ProductResolver
	publisher FavoritePublisher
}

// NewAddFavoriteHandler creates a new add favorite handler
func NewAddFavoriteHandler(repo domain.FavoriteRepository, res ProductResolver, publisher FavoritePublisher) *AddFavoriteHandler {
	return &AddFavoriteHandler{repo: repo, resolver: res, publisher: publisher}
}

// Handle resolves the product (local cache first, external catalog on a
// miss) and then inserts the favorite pair atomically. A product that
// cannot be resolved is never favorited, and no partial write happens on
// transient failure. Re-favoriting surfaces domain.ErrAlreadyExists.
func (h *AddFavoriteHandler) Handle(ctx context.Context, cmd AddFavoriteCommand) (*product.Product, error) {
	if cmd.UserID == 0 {
		return nil, fmt.Errorf("user id is required")
	}

	resolved, err := h.resolver.Resolve(ctx, cmd.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		// invalid id or transient failure, surfaced distinctly to the caller
		return nil, err
	}

	if _, err := h.repo.Add(ctx, cmd.UserID, cmd.ProductID); err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Uint("user_id", cmd.UserID).
		Int("product_id", cmd.ProductID).
		Msg("Favorite added")

	if h.publisher != nil {
		event := kafka.FavoriteChangedEvent{
			EventType: kafka.EventTypeFavoriteAdded,
			UserID:    cmd.UserID,
			ProductID: cmd.ProductID,
		}
		if err := h.publisher.PublishFavoriteChanged(ctx, event); err != nil {
			logger.Warn(ctx).Err(err).Msg("Failed to publish favorite added event")
		}
	}

	return resolved, nil
}
