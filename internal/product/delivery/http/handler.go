package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/favorite-products/internal/catalog"
	"github.com/tair/favorite-products/internal/product/domain"
	"github.com/tair/favorite-products/internal/product/reconciler"
	"github.com/tair/favorite-products/internal/product/resolver"
	"github.com/tair/favorite-products/internal/server"
	"github.com/tair/favorite-products/pkg/logger"
)

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ProductHandler serves the cached product catalog and the admin-facing
// reconciliation trigger
type ProductHandler struct {
	repo       domain.ProductRepository
	resolver   *resolver.Resolver
	reconciler *reconciler.Reconciler

	requestCounter *prometheus.CounterVec
	cachedProducts prometheus.Gauge
}

// NewProductHandler creates a new product handler
func NewProductHandler(repo domain.ProductRepository, res *resolver.Resolver, rec *reconciler.Reconciler) *ProductHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_service_requests_total",
			Help: "Total number of requests to the product endpoints",
		},
		[]string{"method", "endpoint", "status"},
	)

	cachedProducts := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "product_service_cached_products",
			Help: "Number of products currently in the local store",
		},
	)

	prometheus.MustRegister(requestCounter)
	prometheus.MustRegister(cachedProducts)

	return &ProductHandler{
		repo:           repo,
		resolver:       res,
		reconciler:     rec,
		requestCounter: requestCounter,
		cachedProducts: cachedProducts,
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (h *ProductHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	}
}

// RegisterRoutes registers the public product routes
func (h *ProductHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/products", h.metricsMiddleware("/api/products", h.ListProducts)).Methods("GET")
	router.HandleFunc("/api/products/{id}", h.metricsMiddleware("/api/products/{id}", h.GetProduct)).Methods("GET")
}

// RegisterAdminRoutes registers the reconciliation trigger (admin only)
func (h *ProductHandler) RegisterAdminRoutes(router *mux.Router) {
	router.HandleFunc("/admin/sync", h.metricsMiddleware("/admin/sync", server.AdminMiddleware(h.TriggerSync))).Methods("POST")
	router.HandleFunc("/admin/sync/status", h.metricsMiddleware("/admin/sync/status", server.AdminMiddleware(h.SyncStatus))).Methods("GET")
}

// RegisterHealthCheck registers the health endpoint
func (h *ProductHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: "Database unreachable"})
			return
		}
		respondJSON(w, http.StatusOK, Response{Success: true, Message: "OK"})
	}).Methods("GET")
}

// ListProducts handles GET /api/products, serving the local cache only
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	products, err := h.repo.FindAll(limit, offset)
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to list products")
		respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to list products"})
		return
	}

	count, _ := h.repo.Count()
	h.cachedProducts.Set(float64(count))

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"products": products,
			"total":    count,
			"limit":    limit,
			"offset":   offset,
		},
	})
}

// GetProduct handles GET /api/products/{id}; a cache miss falls through to
// the external catalog via the resolver
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid product ID"})
		return
	}

	product, err := h.resolver.Resolve(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrInvalidID):
			respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		case errors.Is(err, catalog.ErrNotFound):
			respondJSON(w, http.StatusNotFound, Response{Success: false, Error: "Product not found"})
		case catalog.IsTransient(err):
			respondJSON(w, http.StatusBadGateway, Response{Success: false, Error: "External catalog is temporarily unavailable, try again later"})
		default:
			logger.Error(r.Context()).Err(err).Msg("Failed to resolve product")
			respondJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to get product"})
		}
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: product})
}

// TriggerSync handles POST /admin/sync, running one reconciliation pass
// inline and reporting its structured outcome
func (h *ProductHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	// Manual runs are bounded independently of the request timeout
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := h.reconciler.Run(ctx)
	if err != nil {
		if errors.Is(err, reconciler.ErrAlreadyRunning) {
			respondJSON(w, http.StatusConflict, Response{Success: false, Error: err.Error()})
			return
		}
		logger.Error(r.Context()).Err(err).Msg("Manual reconciliation failed")
		respondJSON(w, http.StatusBadGateway, Response{
			Success: false,
			Error:   "Reconciliation failed",
			Data:    result,
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Reconciliation finished",
		Data:    result,
	})
}

// SyncStatus handles GET /admin/sync/status
func (h *ProductHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"state":    h.reconciler.State(),
			"last_run": h.reconciler.LastRun(),
		},
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
