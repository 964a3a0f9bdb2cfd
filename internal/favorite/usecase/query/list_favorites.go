package query

import (
	"fmt"

	"github.com/tair/favorite-products/internal/favorite/domain"
	product "github.com/tair/favorite-products/internal/product/domain"
)

const defaultPageSize = 20

// ListFavoritesQuery represents the query for a page of a user's favorites
type ListFavoritesQuery struct {
	UserID   uint
	Page     int
	PageSize int
}

// FavoritesPage is one page of favorited products
type FavoritesPage struct {
	Products []product.Product `json:"products"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ListFavoritesHandler handles the list favorites query
type ListFavoritesHandler struct {
	repo domain.FavoriteRepository
}

// NewListFavoritesHandler creates a new list favorites handler
func NewListFavoritesHandler(repo domain.FavoriteRepository) *ListFavoritesHandler {
	return &ListFavoritesHandler{repo: repo}
}

// Handle returns a page of the user's favorited products. Ordering is by
// favorite creation time then favorite id, so repeated queries enumerate a
// static dataset into stable, non-overlapping pages.
func (h *ListFavoritesHandler) Handle(q ListFavoritesQuery) (*FavoritesPage, error) {
	if q.UserID == 0 {
		return nil, fmt.Errorf("user id is required")
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}

	offset := (q.Page - 1) * q.PageSize
	products, err := h.repo.ListProducts(q.UserID, q.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	total, err := h.repo.CountByUser(q.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}

	return &FavoritesPage{
		Products: products,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}
