package command

import (
	"context"
	"fmt"

	"github.com/tair/favorite-products/internal/favorite/domain"
	"github.com/tair/favorite-products/kafka"
	"github.com/tair/favorite-products/pkg/logger"
)

// RemoveFavoriteCommand represents the command to unfavorite a product
type RemoveFavoriteCommand struct {
	UserID    uint
	ProductID int
}

// RemoveFavoriteHandler handles the remove favorite command
type RemoveFavoriteHandler struct {
	repo      domain.FavoriteRepository
	publisher FavoritePublisher
}

// NewRemoveFavoriteHandler creates a new remove favorite handler
func NewRemoveFavoriteHandler(repo domain.FavoriteRepository, publisher FavoritePublisher) *RemoveFavoriteHandler {
	return &RemoveFavoriteHandler{repo: repo, publisher: publisher}
}

// Handle removes the favorite pair. Removing a pair that does not exist
// returns domain.ErrNotFound and leaves the table unchanged.
func (h *RemoveFavoriteHandler) Handle(ctx context.Context, cmd RemoveFavoriteCommand) error {
	if cmd.UserID == 0 {
		return fmt.Errorf("user id is required")
	}
	if cmd.ProductID <= 0 {
		return ErrInvalidProductID
	}

	if err := h.repo.Remove(ctx, cmd.UserID, cmd.ProductID); err != nil {
		return err
	}

	logger.Info(ctx).
		Uint("user_id", cmd.UserID).
		Int("product_id", cmd.ProductID).
		Msg("Favorite removed")

	if h.publisher != nil {
		event := kafka.FavoriteChangedEvent{
			EventType: kafka.EventTypeFavoriteRemoved,
			UserID:    cmd.UserID,
			ProductID: cmd.ProductID,
		}
		if err := h.publisher.PublishFavoriteChanged(ctx, event); err != nil {
			logger.Warn(ctx).Err(err).Msg("Failed to publish favorite removed event")
		}
	}

	return nil
}
