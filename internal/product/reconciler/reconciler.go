package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/favorite-products/internal/catalog"
	"github.com/tair/favorite-products/internal/product/domain"
	"github.com/tair/favorite-products/kafka"
	"github.com/tair/favorite-products/pkg/logger"
)

// ErrAlreadyRunning is returned when a run is triggered while one is in flight
var ErrAlreadyRunning = errors.New("reconciliation already running")

// Status of a finished reconciliation run
type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusPartialFailure Status = "partial_failure"
	StatusFailed         Status = "failed"
)

// State of the job between runs
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

var (
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "favorite_products_reconciler_runs_total",
		Help: "Reconciliation runs by final status",
	}, []string{"status"})
	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "favorite_products_reconciler_run_duration_seconds",
		Help:    "Duration of reconciliation runs in seconds",
		Buckets: prometheus.DefBuckets,
	})
	productsRepaired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "favorite_products_reconciler_products_repaired_total",
		Help: "Products upserted because they drifted from the external catalog",
	})
	lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "favorite_products_reconciler_last_run_timestamp_seconds",
		Help: "Unix timestamp of the last completed reconciliation run",
	})
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, productsRepaired, lastRunTimestamp)
}

// Result is the structured outcome of a single run
type Result struct {
	Status    Status        `json:"status"`
	Checked   int           `json:"checked"`
	Updated   int           `json:"updated"`
	Created   int           `json:"created"`
	Unchanged int           `json:"unchanged"`
	Stale     int           `json:"stale"`
	FailedIDs []int         `json:"failed_ids,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// CatalogLister is the slice of the external catalog client the job needs
type CatalogLister interface {
	FetchAll(ctx context.Context) ([]catalog.Product, error)
}

// EventPublisher reports run outcomes downstream
type EventPublisher interface {
	PublishCatalogReconciled(ctx context.Context, event kafka.CatalogReconciledEvent) error
}

// Config tunes reconciliation behavior
type Config struct {
	// Prepopulate caches products that exist upstream but were never
	// resolved locally. When false, only already-cached products are
	// repaired.
	Prepopulate bool
}

// Reconciler periodically diffs the local product store against the external
// catalog and repairs drift through the store's atomic upsert. It never
// deletes: products that disappeared upstream are retained and reported as
// stale.
type Reconciler struct {
	store     domain.ProductRepository
	catalog   CatalogLister
	publisher EventPublisher
	config    Config

	mu      sync.Mutex
	state   State
	lastRun *Result
}

// New creates a reconciler. publisher may be nil when eventing is disabled.
func New(store domain.ProductRepository, lister CatalogLister, publisher EventPublisher, config Config) *Reconciler {
	return &Reconciler{
		store:     store,
		catalog:   lister,
		publisher: publisher,
		config:    config,
		state:     StateIdle,
	}
}

// State returns the current job state
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastRun returns the outcome of the most recent completed run, if any
func (r *Reconciler) LastRun() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// Run executes one reconciliation pass. Only one run may be in flight at a
// time; a concurrent trigger fails with ErrAlreadyRunning. A fetch failure
// aborts the whole run with StatusFailed and leaves the store untouched.
// Per-item failures are recorded and the run continues, finishing as
// StatusPartialFailure. Cancellation is honored between items; per-item
// upserts are atomic, so stopping mid-run never leaves a half-written record.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.state = StateRunning
	r.mu.Unlock()

	result := &Result{StartedAt: time.Now()}
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		runsTotal.WithLabelValues(string(result.Status)).Inc()
		runDuration.Observe(result.Duration.Seconds())
		lastRunTimestamp.SetToCurrentTime()

		r.mu.Lock()
		r.state = StateIdle
		r.lastRun = result
		r.mu.Unlock()

		r.report(result)
	}()

	logger.Info(ctx).Msg("Reconciliation run started")

	fetched, err := r.catalog.FetchAll(ctx)
	if err != nil {
		result.Status = StatusFailed
		logger.Error(ctx).Err(err).Msg("Reconciliation aborted: catalog fetch failed")
		return result, err
	}

	local, err := r.store.FindAll(0, 0)
	if err != nil {
		result.Status = StatusFailed
		logger.Error(ctx).Err(err).Msg("Reconciliation aborted: store listing failed")
		return result, err
	}

	cached := make(map[int]*domain.Product, len(local))
	for i := range local {
		cached[local[i].APIID] = &local[i]
	}
	upstream := make(map[int]struct{}, len(fetched))

	for i := range fetched {
		if err := ctx.Err(); err != nil {
			result.Status = StatusFailed
			logger.Warn(ctx).Int("checked", result.Checked).Msg("Reconciliation canceled")
			return result, err
		}

		item := &fetched[i]
		if item.ID <= 0 {
			result.FailedIDs = append(result.FailedIDs, item.ID)
			logger.Warn(ctx).Int("api_id", item.ID).Msg("Skipping malformed catalog record")
			continue
		}
		upstream[item.ID] = struct{}{}
		result.Checked++

		desired := domain.FromCatalog(item)
		existing, isCached := cached[item.ID]

		switch {
		case isCached && existing.Equal(desired):
			result.Unchanged++
		case isCached:
			if err := r.repair(ctx, desired, result); err == nil {
				result.Updated++
				productsRepaired.Inc()
			}
		case r.config.Prepopulate:
			if err := r.repair(ctx, desired, result); err == nil {
				result.Created++
			}
		}
	}

	// Products cached locally but gone upstream are retained, not deleted
	for apiID := range cached {
		if _, ok := upstream[apiID]; !ok {
			result.Stale++
		}
	}

	if len(result.FailedIDs) > 0 {
		result.Status = StatusPartialFailure
	} else {
		result.Status = StatusSucceeded
	}

	logger.Info(ctx).
		Str("status", string(result.Status)).
		Int("checked", result.Checked).
		Int("updated", result.Updated).
		Int("created", result.Created).
		Int("unchanged", result.Unchanged).
		Int("stale", result.Stale).
		Ints("failed_ids", result.FailedIDs).
		Msg("Reconciliation run finished")

	return result, nil
}

func (r *Reconciler) repair(ctx context.Context, product *domain.Product, result *Result) error {
	if _, err := r.store.Upsert(ctx, product); err != nil {
		result.FailedIDs = append(result.FailedIDs, product.APIID)
		logger.Error(ctx).
			Err(err).
			Int("api_id", product.APIID).
			Msg("Failed to repair product")
		return err
	}
	return nil
}

// report publishes the run outcome; eventing is best effort
func (r *Reconciler) report(result *Result) {
	if r.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := kafka.CatalogReconciledEvent{
		Status:    string(result.Status),
		Checked:   result.Checked,
		Updated:   result.Updated,
		Created:   result.Created,
		Unchanged: result.Unchanged,
		Stale:     result.Stale,
		FailedIDs: result.FailedIDs,
		Duration:  result.Duration.String(),
	}
	if err := r.publisher.PublishCatalogReconciled(ctx, event); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to publish reconciliation event")
	}
}
