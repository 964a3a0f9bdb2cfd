package reconciler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/favorite-products/internal/catalog"
	"github.com/tair/favorite-products/internal/product/domain"
	"github.com/tair/favorite-products/internal/product/reconciler"
	"github.com/tair/favorite-products/kafka"
)

// fakeStore is an in-memory ProductRepository that can fail upserts for
// selected ids
type fakeStore struct {
	products   map[int]*domain.Product
	upserts    []int
	failingIDs map[int]bool
}

func newFakeStore(seed ...*domain.Product) *fakeStore {
	s := &fakeStore{
		products:   make(map[int]*domain.Product),
		failingIDs: make(map[int]bool),
	}
	for _, p := range seed {
		copied := *p
		s.products[p.APIID] = &copied
	}
	return s
}

func (s *fakeStore) FindByAPIID(apiID int) (*domain.Product, error) {
	if p, ok := s.products[apiID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) FindAll(limit, offset int) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeStore) Upsert(ctx context.Context, product *domain.Product) (domain.UpsertOutcome, error) {
	if s.failingIDs[product.APIID] {
		return 0, fmt.Errorf("upsert failed for %d", product.APIID)
	}
	s.upserts = append(s.upserts, product.APIID)
	existing, ok := s.products[product.APIID]
	copied := *product
	s.products[product.APIID] = &copied
	switch {
	case !ok:
		return domain.UpsertCreated, nil
	case existing.Equal(product):
		return domain.UpsertUnchanged, nil
	default:
		return domain.UpsertUpdated, nil
	}
}

func (s *fakeStore) Count() (int64, error) {
	return int64(len(s.products)), nil
}

// fakeLister serves a canned catalog, optionally blocking until released
type fakeLister struct {
	products []catalog.Product
	err      error
	block    chan struct{}
}

func (l *fakeLister) FetchAll(ctx context.Context) ([]catalog.Product, error) {
	if l.block != nil {
		<-l.block
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.products, nil
}

// fakePublisher records published reconciliation events
type fakePublisher struct {
	events []kafka.CatalogReconciledEvent
}

func (p *fakePublisher) PublishCatalogReconciled(ctx context.Context, event kafka.CatalogReconciledEvent) error {
	p.events = append(p.events, event)
	return nil
}

func catalogProduct(id int, title string, price float64) catalog.Product {
	return catalog.Product{ID: id, Title: title, Price: decimal.NewFromFloat(price)}
}

func localProduct(id int, title string, price float64) *domain.Product {
	return &domain.Product{APIID: id, Title: title, Price: decimal.NewFromFloat(price)}
}

func TestRun(t *testing.T) {
	t.Run("repairs a drifted product with a single upsert", func(t *testing.T) {
		store := newFakeStore(
			localProduct(1, "Backpack", 100.00),
			localProduct(2, "T-Shirt", 22.30),
		)
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95), // price changed upstream
			catalogProduct(2, "T-Shirt", 22.30),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		result, err := rec.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, reconciler.StatusSucceeded, result.Status)
		assert.Equal(t, 2, result.Checked)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Unchanged)
		assert.Equal(t, []int{1}, store.upserts)
		assert.True(t, store.products[1].Price.Equal(decimal.NewFromFloat(109.95)))
	})

	t.Run("identical records cause no writes", func(t *testing.T) {
		store := newFakeStore(localProduct(1, "Backpack", 109.95))
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		result, err := rec.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, reconciler.StatusSucceeded, result.Status)
		assert.Equal(t, 1, result.Unchanged)
		assert.Zero(t, result.Updated)
		assert.Empty(t, store.upserts)
	})

	t.Run("prepopulate caches products never resolved locally", func(t *testing.T) {
		store := newFakeStore()
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95),
			catalogProduct(2, "T-Shirt", 22.30),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		result, err := rec.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, result.Created)
		assert.Len(t, store.products, 2)
	})

	t.Run("without prepopulate only cached products are touched", func(t *testing.T) {
		store := newFakeStore(localProduct(1, "Backpack", 100.00))
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95),
			catalogProduct(2, "T-Shirt", 22.30),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: false})

		result, err := rec.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.Zero(t, result.Created)
		assert.Len(t, store.products, 1)
	})

	t.Run("catalog failure aborts with the store untouched", func(t *testing.T) {
		store := newFakeStore(localProduct(1, "Backpack", 100.00))
		lister := &fakeLister{err: &catalog.TransientError{Op: "fetch catalog", Err: fmt.Errorf("connection refused")}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		result, err := rec.Run(context.Background())

		require.Error(t, err)
		assert.Equal(t, reconciler.StatusFailed, result.Status)
		assert.Empty(t, store.upserts)
		assert.True(t, store.products[1].Price.Equal(decimal.NewFromFloat(100.00)))
	})

	t.Run("per-item failure is recorded and the run continues", func(t *testing.T) {
		store := newFakeStore(
			localProduct(1, "Backpack", 100.00),
			localProduct(2, "T-Shirt", 20.00),
		)
		store.failingIDs[1] = true
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95),
			catalogProduct(2, "T-Shirt", 22.30),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		result, err := rec.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, reconciler.StatusPartialFailure, result.Status)
		assert.Equal(t, []int{1}, result.FailedIDs)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, []int{2}, store.upserts)
	})

	t.Run("malformed catalog records are skipped and reported", func(t *testing.T) {
		store := newFakeStore()
		lister := &fakeLister{products: []catalog.Product{
			{ID: 0, Title: "No id"},
			catalogProduct(2, "T-Shirt", 22.30),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		result, err := rec.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, reconciler.StatusPartialFailure, result.Status)
		assert.Equal(t, []int{0}, result.FailedIDs)
		assert.Equal(t, 1, result.Checked)
		assert.Equal(t, 1, result.Created)
	})

	t.Run("products gone upstream are retained and counted stale", func(t *testing.T) {
		store := newFakeStore(
			localProduct(1, "Backpack", 109.95),
			localProduct(99, "Discontinued", 5.00),
		)
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		result, err := rec.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, reconciler.StatusSucceeded, result.Status)
		assert.Equal(t, 1, result.Stale)
		assert.Contains(t, store.products, 99)
	})

	t.Run("cancellation stops between items", func(t *testing.T) {
		store := newFakeStore()
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95),
		}}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := rec.Run(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, reconciler.StatusFailed, result.Status)
		assert.Empty(t, store.upserts)
	})

	t.Run("only one run may be in flight", func(t *testing.T) {
		store := newFakeStore()
		lister := &fakeLister{block: make(chan struct{})}
		rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

		done := make(chan struct{})
		go func() {
			rec.Run(context.Background())
			close(done)
		}()

		// wait for the first run to take the slot
		require.Eventually(t, func() bool {
			return rec.State() == reconciler.StateRunning
		}, time.Second, time.Millisecond)

		_, err := rec.Run(context.Background())
		assert.ErrorIs(t, err, reconciler.ErrAlreadyRunning)

		close(lister.block)
		<-done
		assert.Equal(t, reconciler.StateIdle, rec.State())
		require.NotNil(t, rec.LastRun())
	})

	t.Run("outcome is reported downstream", func(t *testing.T) {
		store := newFakeStore(localProduct(1, "Backpack", 100.00))
		lister := &fakeLister{products: []catalog.Product{
			catalogProduct(1, "Backpack", 109.95),
		}}
		publisher := &fakePublisher{}
		rec := reconciler.New(store, lister, publisher, reconciler.Config{Prepopulate: true})

		_, err := rec.Run(context.Background())

		require.NoError(t, err)
		require.Len(t, publisher.events, 1)
		event := publisher.events[0]
		assert.Equal(t, string(reconciler.StatusSucceeded), event.Status)
		assert.Equal(t, 1, event.Checked)
		assert.Equal(t, 1, event.Updated)
	})
}

func TestRunSequentialReuse(t *testing.T) {
	store := newFakeStore()
	lister := &fakeLister{products: []catalog.Product{
		catalogProduct(1, "Backpack", 109.95),
	}}
	rec := reconciler.New(store, lister, nil, reconciler.Config{Prepopulate: true})

	first, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Unchanged)
	assert.Zero(t, second.Created)
}
