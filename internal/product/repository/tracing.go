package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tair/favorite-products/internal/product/domain"
)

var tracer = otel.Tracer("product-repository")

// GormProductRepositoryWithTracing wraps GormProductRepository with tracing
type GormProductRepositoryWithTracing struct {
	*GormProductRepository
}

// NewGormProductRepositoryWithTracing creates a new repository with tracing
func NewGormProductRepositoryWithTracing(db *gorm.DB) *GormProductRepositoryWithTracing {
	return &GormProductRepositoryWithTracing{
		GormProductRepository: NewGormProductRepository(db),
	}
}

// Upsert with tracing
func (r *GormProductRepositoryWithTracing) Upsert(ctx context.Context, product *domain.Product) (domain.UpsertOutcome, error) {
	ctx, span := tracer.Start(ctx, "repository.Upsert",
		trace.WithAttributes(
			attribute.Int("product.api_id", product.APIID),
			attribute.String("product.title", product.Title),
			attribute.String("product.price", product.Price.String()),
		),
	)
	defer span.End()

	outcome, err := r.GormProductRepository.Upsert(ctx, product)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return outcome, err
	}

	span.SetAttributes(attribute.String("product.upsert_outcome", outcome.String()))
	span.SetStatus(codes.Ok, "")
	return outcome, nil
}

// FindByAPIIDWithContext looks up a product under a span
func (r *GormProductRepositoryWithTracing) FindByAPIIDWithContext(ctx context.Context, apiID int) (*domain.Product, error) {
	_, span := tracer.Start(ctx, "repository.FindByAPIID",
		trace.WithAttributes(attribute.Int("product.api_id", apiID)),
	)
	defer span.End()

	product, err := r.GormProductRepository.FindByAPIID(apiID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return product, nil
}
