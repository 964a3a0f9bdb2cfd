package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/favorite-products/internal/product/domain"
)

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Product{})
}

func (r *GormProductRepository) FindByAPIID(apiID int) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.Where("api_id = ?", apiID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

func (r *GormProductRepository) FindAll(limit, offset int) ([]domain.Product, error) {
	var products []domain.Product
	query := r.db.Order("api_id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Upsert writes a full product record in a single atomic statement.
// The outcome is derived from a point read before the write; the write
// itself is ON CONFLICT DO UPDATE, so concurrent upserts of the same
// identifier cannot interleave into a corrupted row (last writer wins
// with a full-record replace).
func (r *GormProductRepository) Upsert(ctx context.Context, product *domain.Product) (domain.UpsertOutcome, error) {
	outcome := domain.UpsertCreated

	existing, err := r.FindByAPIID(product.APIID)
	switch {
	case err == nil:
		if existing.Equal(product) {
			return domain.UpsertUnchanged, nil
		}
		outcome = domain.UpsertUpdated
	case errors.Is(err, domain.ErrNotFound):
		// first sighting, fall through to insert
	default:
		return 0, err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "api_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "price", "description", "category", "image",
			"rating_rate", "rating_count", "updated_at",
		}),
	}).Create(product).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product: %w", err)
	}

	return outcome, nil
}

func (r *GormProductRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&domain.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}
