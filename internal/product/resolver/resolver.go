package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/favorite-products/internal/catalog"
	"github.com/tair/favorite-products/internal/product/domain"
	"github.com/tair/favorite-products/pkg/logger"
)

// ErrInvalidID is returned for non-positive product identifiers
var ErrInvalidID = errors.New("product id must be a positive integer")

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "favorite_products_resolver_cache_hits_total",
		Help: "Number of product resolutions served from the local store",
	})
	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "favorite_products_resolver_cache_misses_total",
		Help: "Number of product resolutions that required an external fetch",
	})
	externalFetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "favorite_products_resolver_fetch_failures_total",
		Help: "External catalog fetch failures by kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, externalFetchFailures)
}

// CatalogFetcher is the slice of the external catalog client the resolver needs
type CatalogFetcher interface {
	FetchOne(ctx context.Context, id int) (*catalog.Product, error)
}

// Resolver mediates cache-or-fetch for a single product: a store hit is
// returned without touching the network; a miss fetches from the external
// catalog and writes through the store.
type Resolver struct {
	store   domain.ProductRepository
	catalog CatalogFetcher
}

// New creates a resolver over the given store and catalog client
func New(store domain.ProductRepository, fetcher CatalogFetcher) *Resolver {
	return &Resolver{store: store, catalog: fetcher}
}

// Resolve returns the cached product for apiID, fetching and caching it on a
// miss. catalog.ErrNotFound propagates without caching a negative result;
// transient failures propagate without mutating the store. The resolver holds
// no lock: concurrent resolves of the same missing id may both fetch, and the
// store's atomic upsert absorbs the race.
func (r *Resolver) Resolve(ctx context.Context, apiID int) (*domain.Product, error) {
	if apiID <= 0 {
		return nil, ErrInvalidID
	}

	product, err := r.store.FindByAPIID(apiID)
	if err == nil {
		cacheHits.Inc()
		return product, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("store lookup failed: %w", err)
	}

	cacheMisses.Inc()

	fetched, err := r.catalog.FetchOne(ctx, apiID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			externalFetchFailures.WithLabelValues("not_found").Inc()
			return nil, err
		}
		externalFetchFailures.WithLabelValues("transient").Inc()
		return nil, err
	}

	product = domain.FromCatalog(fetched)
	outcome, err := r.store.Upsert(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("failed to cache product: %w", err)
	}

	logger.Debug(ctx).
		Int("api_id", apiID).
		Str("outcome", outcome.String()).
		Msg("Product cached from external catalog")

	return product, nil
}
