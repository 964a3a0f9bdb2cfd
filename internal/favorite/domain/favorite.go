package domain

import (
	"context"
	"errors"
	"time"

	product "github.com/tair/favorite-products/internal/product/domain"
)

var (
	// ErrNotFound means the (user, product) pair is not favorited
	ErrNotFound = errors.New("favorite not found")
	// ErrAlreadyExists means the pair is already favorited
	ErrAlreadyExists = errors.New("product is already on user's favorites")
	// ErrProductNotFound means the product exists neither locally nor upstream
	ErrProductNotFound = errors.New("product not found")
)

// Favorite associates a user with an external catalog product. The
// (user_id, product_id) pair is unique: a product can be favorited at most
// once per user, enforced by the storage layer at write time.
type Favorite struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_product;index"`
	ProductID int       `json:"product_id" gorm:"not null;uniqueIndex:idx_user_product;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name
func (Favorite) TableName() string {
	return "favorites"
}

// FavoriteRepository defines the contract for favorite persistence.
// Add must be an atomic conditional insert: the uniqueness check and the
// write are one statement, never check-then-insert.
type FavoriteRepository interface {
	Add(ctx context.Context, userID uint, productID int) (*Favorite, error)
	Remove(ctx context.Context, userID uint, productID int) error
	IsFavorite(userID uint, productID int) (bool, error)
	// ListProducts returns the user's favorited products joined from the
	// product store, ordered by favorite creation time then favorite id so
	// pages are stable under concurrent adds.
	ListProducts(userID uint, limit, offset int) ([]product.Product, error)
	CountByUser(userID uint) (int64, error)
}
