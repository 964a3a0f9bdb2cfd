package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/favorite-products/internal/catalog"
)

// ErrNotFound is returned when a product is not present in the local store
var ErrNotFound = errors.New("product not found")

// Product is a locally cached record of an external catalog product,
// keyed by the identifier the catalog assigned (APIID)
type Product struct {
	ID          uint             `json:"-" gorm:"primaryKey"`
	APIID       int              `json:"api_id" gorm:"uniqueIndex;not null"`
	Title       string           `json:"title" gorm:"not null"`
	Price       decimal.Decimal  `json:"price" gorm:"type:numeric(10,2);not null"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Image       string           `json:"image"`
	RatingRate  *decimal.Decimal `json:"rating_rate" gorm:"type:numeric(3,1)"`
	RatingCount *int             `json:"rating_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// Equal compares all mutable attributes against another record.
// Identity (APIID) and timestamps are not part of the comparison.
func (p *Product) Equal(other *Product) bool {
	if other == nil {
		return false
	}
	if p.Title != other.Title ||
		p.Description != other.Description ||
		p.Category != other.Category ||
		p.Image != other.Image {
		return false
	}
	if !p.Price.Equal(other.Price) {
		return false
	}
	if (p.RatingRate == nil) != (other.RatingRate == nil) {
		return false
	}
	if p.RatingRate != nil && !p.RatingRate.Equal(*other.RatingRate) {
		return false
	}
	if (p.RatingCount == nil) != (other.RatingCount == nil) {
		return false
	}
	if p.RatingCount != nil && *p.RatingCount != *other.RatingCount {
		return false
	}
	return true
}

// FromCatalog maps an external catalog record into the local model
func FromCatalog(cp *catalog.Product) *Product {
	product := &Product{
		APIID:       cp.ID,
		Title:       cp.Title,
		Price:       cp.Price,
		Description: cp.Description,
		Category:    cp.Category,
		Image:       cp.Image,
	}
	if cp.Rating != nil {
		rate := cp.Rating.Rate
		count := cp.Rating.Count
		product.RatingRate = &rate
		product.RatingCount = &count
	}
	return product
}

// UpsertOutcome describes what an upsert did to the store
type UpsertOutcome int

const (
	// UpsertCreated means no record existed for the identifier before
	UpsertCreated UpsertOutcome = iota
	// UpsertUpdated means an existing record differed and was replaced
	UpsertUpdated
	// UpsertUnchanged means an existing record was already identical
	UpsertUnchanged
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	case UpsertUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// ProductRepository defines the contract for the local product store.
// Upsert is the sole mutation path.
type ProductRepository interface {
	FindByAPIID(apiID int) (*Product, error)
	FindAll(limit, offset int) ([]Product, error)
	Upsert(ctx context.Context, product *Product) (UpsertOutcome, error)
	Count() (int64, error)
}
