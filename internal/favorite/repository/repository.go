package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/favorite-products/internal/favorite/domain"
	product "github.com/tair/favorite-products/internal/product/domain"
)

type GormFavoriteRepository struct {
	db *gorm.DB
}

func NewGormFavoriteRepository(db *gorm.DB) *GormFavoriteRepository {
	return &GormFavoriteRepository{db: db}
}

func (r *GormFavoriteRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Favorite{})
}

// Add inserts the (user, product) pair with ON CONFLICT DO NOTHING. Zero
// affected rows means the pair already existed, so a concurrent duplicate
// add cannot slip through between a check and an insert.
func (r *GormFavoriteRepository) Add(ctx context.Context, userID uint, productID int) (*domain.Favorite, error) {
	favorite := &domain.Favorite{
		UserID:    userID,
		ProductID: productID,
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(favorite)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrAlreadyExists
	}

	return favorite, nil
}

func (r *GormFavoriteRepository) Remove(ctx context.Context, userID uint, productID int) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&domain.Favorite{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormFavoriteRepository) IsFavorite(userID uint, productID int) (bool, error) {
	var favorite domain.Favorite
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).First(&favorite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return true, nil
}

func (r *GormFavoriteRepository) ListProducts(userID uint, limit, offset int) ([]product.Product, error) {
	var products []product.Product
	query := r.db.Model(&product.Product{}).
		Joins("JOIN favorites ON favorites.product_id = products.api_id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at ASC, favorites.id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorite products: %w", err)
	}
	return products, nil
}

func (r *GormFavoriteRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Favorite{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count favorites: %w", err)
	}
	return count, nil
}
